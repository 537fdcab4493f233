package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"yt-transcripts/internal/config"
	"yt-transcripts/internal/discovery"
)

type initResult struct {
	ConfigPath    string                 `json:"config_path"`
	CreatedConfig bool                   `json:"created_config"`
	DoctorResult  discovery.DoctorResult `json:"doctor"`
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("path", config.DefaultFileName, "where to write the sample config")
	force := fs.Bool("force", false, "overwrite an existing config file")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := firstNonEmpty(*path, config.DefaultFileName)
	created, err := config.WriteSample(target, *force)
	if err != nil {
		return err
	}
	def := config.Default()
	res := initResult{
		ConfigPath:    target,
		CreatedConfig: created,
		DoctorResult:  doctorFor(&def),
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Fprintf(stdout, "config: %s\n", res.ConfigPath)
	fmt.Fprintf(stdout, "created_config: %t\n", res.CreatedConfig)
	if !created {
		fmt.Fprintln(stdout, "config already exists (use --force to overwrite)")
	}
	fmt.Fprintln(stdout, "checks:")
	printChecks(res.DoctorResult, "  ")
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Fprintln(stdout, "next: set source.path in the config, then yt-transcripts fetch")
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	settings := bindSettingsFlags(fs)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.load(fs)
	if err != nil {
		return err
	}
	res := doctorFor(cfg)
	if *jsonOut {
		return printJSON(res)
	}

	printChecks(res, "")
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Fprintln(stdout, "doctor: all checks passed")
	return nil
}

func doctorFor(cfg *config.Config) discovery.DoctorResult {
	checkpointPath := ""
	if cfg.Checkpoint.Driver != "postgres" {
		checkpointPath = firstNonEmpty(cfg.Checkpoint.Path, cfg.Checkpoint.DSN)
	}
	return discovery.Doctor(discovery.DoctorOptions{
		CheckpointPath: checkpointPath,
		NeedYTDLP:      cfg.NeedsYTDLP(),
		YTDLP:          ytdlpClient(cfg),
	})
}

func printChecks(res discovery.DoctorResult, indent string) {
	for _, c := range res.Checks {
		status := okStyle.Render("ok")
		if !c.OK {
			status = failStyle.Render("fail")
		}
		fmt.Fprintf(stdout, "%s%s: %s (%s)\n", indent, c.Name, status, strings.TrimSpace(c.Message))
	}
}
