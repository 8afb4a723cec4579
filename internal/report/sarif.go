package report

import (
	"encoding/json"
	"io"
	"path/filepath"

	"ferrolint/internal/rules"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
	toolName     = "ferrolint"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	ShortDescription     sarifMessage `json:"shortDescription"`
	DefaultConfiguration sarifConfig  `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

func sarifLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	}
	return "note"
}

func renderSARIF(w io.Writer, findings []rules.Finding, opts Options) error {
	driver := sarifDriver{
		Name:    toolName,
		Version: opts.ToolVersion,
		Rules:   []sarifRule{},
	}
	index := map[string]int{}
	addRule := func(id, code, desc string, sev rules.Severity) {
		if _, ok := index[code]; ok {
			return
		}
		index[code] = len(driver.Rules)
		driver.Rules = append(driver.Rules, sarifRule{
			ID:                   code,
			Name:                 id,
			ShortDescription:     sarifMessage{Text: desc},
			DefaultConfiguration: sarifConfig{Level: sarifLevel(sev)},
		})
	}
	if opts.Registry != nil {
		for r := range opts.Registry.All() {
			addRule(r.ID(), r.Code(), r.Description(), r.Severity())
		}
	}

	results := make([]sarifResult, 0, len(findings))
	for _, f := range findings {
		addRule(f.RuleID, f.Code, f.RuleID, f.Severity)
		res := sarifResult{
			RuleID:    f.Code,
			RuleIndex: index[f.Code],
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: f.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(f.Path)},
					Region: sarifRegion{
						StartLine:   f.Start.Line,
						StartColumn: f.Start.Column,
						EndLine:     f.End.Line,
						EndColumn:   f.End.Column,
					},
				},
			}},
		}
		if f.Fingerprint != "" {
			res.PartialFingerprints = map[string]string{"ferrolint/v1": f.Fingerprint}
		}
		results = append(results, res)
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{{Tool: sarifTool{Driver: driver}, Results: results}},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}
