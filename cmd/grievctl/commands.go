package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func rootCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "grievctl",
		Short: "Inspect grievance classification and workflow rules",
		Long: `Run the complaint categorizer, duplicate detector and status workflow
without a server or database.

Examples:
  grievctl categorize "wifi keeps dropping in the library"
  grievctl similarity "AC broken in room 101" "room 101 AC not working"
  grievctl duplicates --corpus open.yaml "leaking tap in bathroom"
  grievctl transitions "In Progress" -o yaml
`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch output {
			case formatText, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&output, "output", "o", formatText, "output format: text, json or yaml")

	cmd.AddCommand(
		categorizeCmd(&output),
		similarityCmd(&output),
		duplicatesCmd(&output),
		transitionsCmd(&output),
	)
	return cmd
}

// render writes v in the requested format; text falls back to the given func.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("no text given")
	}
	return s, nil
}

type categorizeResult struct {
	Category   complaint.Category `json:"category" yaml:"category"`
	Confidence int                `json:"confidence" yaml:"confidence"`
	Tags       []string           `json:"tags" yaml:"tags"`
}

func categorizeCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize [text...]",
		Short: "Categorize complaint text (reads stdin without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			c := complaint.Categorize(text)
			res := categorizeResult{Category: c.Category, Confidence: c.Confidence, Tags: c.Tags}

			return render(cmd.OutOrStdout(), *output, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s (confidence %d) tags: %s\n", res.Category, res.Confidence, strings.Join(res.Tags, ", "))
				return err
			})
		},
	}
}

type similarityResult struct {
	Score     float64 `json:"score" yaml:"score"`
	Rounded   int     `json:"rounded" yaml:"rounded"`
	Duplicate bool    `json:"duplicate" yaml:"duplicate"`
}

func similarityCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity <text-a> <text-b>",
		Short: "Score two texts with the duplicate detector's Jaccard similarity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score := complaint.Similarity(args[0], args[1])
			res := similarityResult{
				Score:     score,
				Rounded:   complaint.RoundScore(score),
				Duplicate: complaint.IsLikelyDuplicate(score),
			}

			return render(cmd.OutOrStdout(), *output, res, func(w io.Writer) error {
				verdict := "distinct"
				if res.Duplicate {
					verdict = "likely duplicate"
				}
				_, err := fmt.Fprintf(w, "similarity %d%% (%s)\n", res.Rounded, verdict)
				return err
			})
		},
	}
}

// corpusEntry is one complaint in a duplicates corpus file.
type corpusEntry struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Category    complaint.Category `yaml:"category"`
	Status      complaint.Status   `yaml:"status"`
}

// corpus answers the detector's open-complaint query from a file.
type corpus []corpusEntry

func (c corpus) QueryOpenComplaintsByCategory(_ context.Context, category complaint.Category) ([]complaint.ComplaintText, error) {
	var out []complaint.ComplaintText
	for _, e := range c {
		status := e.Status
		if status == "" {
			status = complaint.StatusSubmitted
		}
		if e.Category != category || !status.IsOpen() {
			continue
		}
		out = append(out, complaint.ComplaintText{ID: e.ID, Title: e.Title, Description: e.Description})
	}
	return out, nil
}

func loadCorpus(path string) (corpus, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var c corpus
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	for i, e := range c {
		if e.ID == "" {
			return nil, fmt.Errorf("corpus entry %d has no id", i)
		}
		if !e.Category.IsValid() {
			return nil, fmt.Errorf("corpus entry %s: unknown category %q", e.ID, e.Category)
		}
		if e.Status != "" && !e.Status.IsValid() {
			return nil, fmt.Errorf("corpus entry %s: unknown status %q", e.ID, e.Status)
		}
	}
	return c, nil
}

type duplicatesResult struct {
	Category   complaint.Category `json:"category" yaml:"category"`
	Candidates []candidate        `json:"candidates" yaml:"candidates"`
}

type candidate struct {
	ComplaintID     string `json:"complaintId" yaml:"complaintId"`
	Title           string `json:"title" yaml:"title"`
	SimilarityScore int    `json:"similarityScore" yaml:"similarityScore"`
}

func duplicatesCmd(output *string) *cobra.Command {
	var (
		corpusPath string
		category   string
	)

	cmd := &cobra.Command{
		Use:   "duplicates --corpus <file.yaml> [text...]",
		Short: "Find likely duplicates of text among the open complaints in a corpus file",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			c, err := loadCorpus(corpusPath)
			if err != nil {
				return err
			}

			cat := complaint.Categorize(text).Category
			if category != "" {
				var ok bool
				if cat, ok = complaint.ParseCategory(category); !ok {
					return fmt.Errorf("unknown category %q", category)
				}
			}

			found := complaint.NewDuplicateDetector(c, nil, complaint.Hooks{}).FindSimilar(cmd.Context(), text, cat)
			res := duplicatesResult{Category: cat, Candidates: make([]candidate, 0, len(found))}
			for _, d := range found {
				res.Candidates = append(res.Candidates, candidate{
					ComplaintID:     d.ComplaintID,
					Title:           d.Title,
					SimilarityScore: complaint.RoundScore(d.SimilarityScore),
				})
			}

			return render(cmd.OutOrStdout(), *output, res, func(w io.Writer) error {
				if len(res.Candidates) == 0 {
					_, err := fmt.Fprintf(w, "no likely duplicates in %s\n", res.Category)
					return err
				}
				for _, d := range res.Candidates {
					if _, err := fmt.Fprintf(w, "%3d%%  %s  %s\n", d.SimilarityScore, d.ComplaintID, d.Title); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "YAML file listing existing complaints")
	cmd.Flags().StringVar(&category, "category", "", "category to search (default: categorize the text)")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}

type transitionEdges struct {
	From     complaint.Status   `json:"from" yaml:"from"`
	To       []complaint.Status `json:"to" yaml:"to"`
	Terminal bool               `json:"terminal" yaml:"terminal"`
}

func transitionsCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transitions [status]",
		Short: "Print the status workflow, or the next statuses from one status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := complaint.Statuses()
			if len(args) == 1 {
				s, ok := complaint.ParseStatus(args[0])
				if !ok {
					return fmt.Errorf("unknown status %q", args[0])
				}
				from = []complaint.Status{s}
			}

			edges := make([]transitionEdges, 0, len(from))
			for _, s := range from {
				edges = append(edges, transitionEdges{From: s, To: s.NextStatuses(), Terminal: s.IsTerminal()})
			}

			return render(cmd.OutOrStdout(), *output, edges, func(w io.Writer) error {
				for _, e := range edges {
					next := "(terminal)"
					if len(e.To) > 0 {
						parts := make([]string, len(e.To))
						for i, s := range e.To {
							parts[i] = string(s)
						}
						next = strings.Join(parts, ", ")
					}
					if _, err := fmt.Fprintf(w, "%-12s -> %s\n", e.From, next); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
