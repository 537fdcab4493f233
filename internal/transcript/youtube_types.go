package transcript

import "strings"

type playerResponse struct {
	PlayabilityStatus playabilityStatus `json:"playabilityStatus"`
	Captions          *captions         `json:"captions"`
	VideoDetails      struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
	} `json:"videoDetails"`
}

type playabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type captions struct {
	Renderer struct {
		CaptionTracks []captionTrack `json:"captionTracks"`
	} `json:"playerCaptionsTracklistRenderer"`
}

type captionTrack struct {
	BaseURL      string   `json:"baseUrl"`
	LanguageCode string   `json:"languageCode"`
	Kind         string   `json:"kind"`
	Name         textRuns `json:"name"`
}

func (t captionTrack) generated() bool {
	return t.Kind == "asr"
}

type textRuns struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r textRuns) String() string {
	if r.SimpleText != "" {
		return r.SimpleText
	}
	var b strings.Builder
	for _, run := range r.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

type innertubeRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
			HL            string `json:"hl,omitempty"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}
