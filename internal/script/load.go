package script

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed scripts/*.yaml
var scriptsFS embed.FS

// DefaultLanguage is used when the requested language has no script.
const DefaultLanguage = "en"

type rawOption struct {
	Action          string      `yaml:"action"`
	Text            string      `yaml:"text"`
	ConditionalText string      `yaml:"conditional_text"`
	Continuation    string      `yaml:"continuation"`
	FollowUps       []rawOption `yaml:"follow_ups"`
}

type rawQuestion struct {
	Text    string      `yaml:"text"`
	Options []rawOption `yaml:"options"`
}

type rawBlock struct {
	Title        string       `yaml:"title"`
	Text         string       `yaml:"text"`
	Intermediate *rawQuestion `yaml:"intermediate"`
	Continuation string       `yaml:"continuation"`
	Options      []rawOption  `yaml:"options"`
	Reward       int          `yaml:"reward"`
	Progress     int          `yaml:"progress"`
	Skill        string       `yaml:"skill"`
}

type rawButton struct {
	Kind   string `yaml:"kind"`
	Text   string `yaml:"text"`
	URL    string `yaml:"url"`
	URI    string `yaml:"uri"`
	Target string `yaml:"target"`
}

type rawStep struct {
	ID      string      `yaml:"id"`
	Text    string      `yaml:"text"`
	Buttons []rawButton `yaml:"buttons"`
}

type rawScript struct {
	Blocks []rawBlock `yaml:"blocks"`
	Wallet []rawStep  `yaml:"wallet"`
	Wisdom []string   `yaml:"wisdom"`
}

// Load returns the embedded script for lang, falling back to DefaultLanguage.
func Load(lang string) (*Script, error) {
	data, err := fs.ReadFile(scriptsFS, "scripts/"+lang+".yaml")
	if errors.Is(err, fs.ErrNotExist) && lang != DefaultLanguage {
		data, err = fs.ReadFile(scriptsFS, "scripts/"+DefaultLanguage+".yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", lang, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var raw rawScript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}

	s := &Script{Wisdom: raw.Wisdom}
	for i, rb := range raw.Blocks {
		b, err := rb.toBlock(i)
		if err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, rb.Title, err)
		}
		s.Blocks = append(s.Blocks, b)
	}
	for _, rs := range raw.Wallet {
		step, err := rs.toStep()
		if err != nil {
			return nil, fmt.Errorf("wallet step %s: %w", rs.ID, err)
		}
		s.Wallet = append(s.Wallet, step)
	}
	s.index()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (rb rawBlock) toBlock(i int) (Block, error) {
	b := Block{
		Index:          i,
		Title:          rb.Title,
		Text:           rb.Text,
		Continuation:   rb.Continuation,
		Reward:         rb.Reward,
		ProgressTarget: rb.Progress,
		Skill:          rb.Skill,
	}
	opts, err := toOptions(rb.Options)
	if err != nil {
		return Block{}, err
	}
	b.Options = opts
	if rb.Intermediate != nil {
		qopts, err := toOptions(rb.Intermediate.Options)
		if err != nil {
			return Block{}, fmt.Errorf("intermediate: %w", err)
		}
		b.Intermediate = &Question{Text: rb.Intermediate.Text, Options: qopts}
	}
	return b, nil
}

func toOptions(raws []rawOption) ([]Option, error) {
	opts := make([]Option, 0, len(raws))
	for _, r := range raws {
		o, err := r.toOption()
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, nil
}

func (r rawOption) toOption() (Option, error) {
	if r.Text == "" {
		return nil, fmt.Errorf("option %q has no text", r.Action)
	}
	if len(r.FollowUps) > 0 && r.Action != "conditional" {
		return nil, fmt.Errorf("option %q: follow_ups are only allowed on conditional options", r.Text)
	}
	switch r.Action {
	case "continue":
		return ContinueOption{Text: r.Text, Continuation: r.Continuation}, nil
	case "next_block":
		return NextBlockOption{Text: r.Text, ConditionalText: r.ConditionalText}, nil
	case "go_back":
		return GoBackOption{Text: r.Text, ConditionalText: r.ConditionalText}, nil
	case "restart":
		return RestartOption{Text: r.Text, ConditionalText: r.ConditionalText}, nil
	case "conditional":
		if r.ConditionalText == "" {
			return nil, fmt.Errorf("conditional option %q has no conditional_text", r.Text)
		}
		follow, err := toOptions(r.FollowUps)
		if err != nil {
			return nil, err
		}
		return ConditionalOption{Text: r.Text, ConditionalText: r.ConditionalText, FollowUps: follow}, nil
	case "start_wallet":
		return StartWalletOption{Text: r.Text}, nil
	default:
		return nil, fmt.Errorf("unknown option action %q", r.Action)
	}
}

func (rs rawStep) toStep() (WalletStep, error) {
	step := WalletStep{ID: rs.ID, Text: rs.Text}
	for _, rb := range rs.Buttons {
		switch rb.Kind {
		case "next":
			step.Buttons = append(step.Buttons, NextButton{Text: rb.Text, Target: rb.Target})
		case "external":
			step.Buttons = append(step.Buttons, ExternalButton{Text: rb.Text, URL: rb.URL})
		case "deeplink":
			step.Buttons = append(step.Buttons, DeeplinkButton{Text: rb.Text, URI: rb.URI, Target: rb.Target})
		default:
			return WalletStep{}, fmt.Errorf("unknown button kind %q", rb.Kind)
		}
	}
	return step, nil
}
