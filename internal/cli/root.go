package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "fetch":
		return runFetch(args[1:])
	case "status":
		return runStatus(args[1:])
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("yt-transcripts: resumable batch fetcher for YouTube transcripts")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  yt-transcripts init")
	fmt.Println("  yt-transcripts fetch --ids videos.csv")
	fmt.Println("  yt-transcripts status --ids videos.csv")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init      write a sample yt-transcripts.yaml and run environment checks")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println("  fetch     fetch pending transcripts, checkpointing after every video")
	fmt.Println("  status    show checkpoint progress without fetching")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Settings come from yt-transcripts.yaml, .env and YTT_* variables; flags win")
	fmt.Println("  - Re-running fetch resumes: resolved videos are never fetched again")
	fmt.Println("  - Use --json on commands for machine-readable output")
}
