package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format is an output format for a report.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
	FormatPretty
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatPretty:
		return "pretty"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "pretty":
		return FormatPretty, nil
	default:
		return FormatText, fmt.Errorf("unknown report format %q (text, json, yaml, pretty)", s)
	}
}

// WriteText writes one "Label: value" line per statistic.
func (r *Report) WriteText(w io.Writer) error {
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Label, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes the statistics as an object with keys in report order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var stats bytes.Buffer
	stats.WriteByte('{')
	for i, e := range r.Entries {
		if i > 0 {
			stats.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		stats.Write(key)
		stats.WriteByte(':')
		stats.Write(val)
	}
	stats.WriteByte('}')

	return json.Marshal(struct {
		Meta
		Statistics json.RawMessage `json:"statistics"`
	}{r.Meta, stats.Bytes()})
}

// WriteJSON writes the indented JSON document.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// MarshalYAML builds an ordered mapping node.
func (r *Report) MarshalYAML() (interface{}, error) {
	statsNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.Entries {
		val := &yaml.Node{Kind: yaml.ScalarNode, Value: e.Value.String()}
		if !e.Value.Valid {
			val.Tag = "!!str"
		}
		statsNode.Content = append(statsNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Label},
			val,
		)
	}

	scalar := func(k, v, tag string) []*yaml.Node {
		return []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: k},
			{Kind: yaml.ScalarNode, Value: v, Tag: tag},
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar("run_id", r.Meta.RunID, "!!str")...)
	root.Content = append(root.Content, scalar("source", r.Meta.Source, "!!str")...)
	root.Content = append(root.Content, scalar("snapshots", fmt.Sprintf("%d", r.Meta.Snapshots), "")...)
	root.Content = append(root.Content, scalar("generated_at", r.Meta.GeneratedAt.Format(time.RFC3339), "")...)
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "statistics"},
		statsNode,
	)
	return root, nil
}

// WriteYAML writes the YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders the report in a plain format. FormatPretty is rendered by
// the terminal UI and falls back to text here.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatYAML:
		return r.WriteYAML(w)
	default:
		return r.WriteText(w)
	}
}
