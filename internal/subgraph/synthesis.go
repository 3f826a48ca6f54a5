// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Finding is one piece of organized evidence feeding the synthesis
// subgraph, carrying the source it footnotes back to.
type Finding struct {
	Text       string
	SourceURL  string
	SourceName string
}

// BuildSynthesisGraph compiles the "knowledge-document synthesis" subgraph
// from spec §4.10: organize findings hierarchically, generate the four
// canonical sections, format footnote citations, build YAML frontmatter,
// assemble the final markdown document.
// Input keys: title (string), findings ([]Finding), contradictions
// ([]contradiction, optional).
// Output keys: markdown (string).
func BuildSynthesisGraph(llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("knowledge_document_synthesis")

	g.AddNode("organize", func(ctx context.Context, state State) (Patch, error) {
		findings, _ := state["findings"].([]Finding)
		// Hierarchical grouping by source name keeps footnotes grouped with
		// the evidence they support, rather than interleaved arbitrarily.
		grouped := make(map[string][]Finding)
		var order []string
		for _, f := range findings {
			key := f.SourceName
			if key == "" {
				key = f.SourceURL
			}
			if _, ok := grouped[key]; !ok {
				order = append(order, key)
			}
			grouped[key] = append(grouped[key], f)
		}
		return Patch{"grouped_order": order, "grouped_findings": grouped}, nil
	})

	g.AddNode("generate_sections", func(ctx context.Context, state State) (Patch, error) {
		order, _ := state["grouped_order"].([]string)
		grouped, _ := state["grouped_findings"].(map[string][]Finding)
		contradictions, _ := state["contradictions"].([]contradiction)

		var evidence strings.Builder
		for _, key := range order {
			fmt.Fprintf(&evidence, "Source: %s\n", key)
			for _, f := range grouped[key] {
				fmt.Fprintf(&evidence, "- %s\n", f.Text)
			}
		}

		sections := make(map[string]string)
		for name, prompt := range map[string]string{
			"executive_summary": "Write a concise Executive Summary paragraph synthesizing these findings:\n" + evidence.String(),
			"core_findings":     "Write a Core Findings section, organized by theme, from these findings:\n" + evidence.String(),
			"supporting_evidence": "Write a Supporting Evidence section quoting or closely paraphrasing the strongest findings:\n" + evidence.String(),
		} {
			text, _, err := llm.Complete(ctx, prompt, CompleteOptions{MaxTokens: 600})
			if err != nil {
				text = ""
			}
			sections[name] = text
		}

		var contraText strings.Builder
		for _, c := range contradictions {
			fmt.Fprintf(&contraText, "- %s: %s vs %s — %s\n", c.ClaimText, c.SourceA, c.SourceB, c.Summary)
		}
		sections["contradictions"] = contraText.String()

		return Patch{
			"section_executive_summary":   sections["executive_summary"],
			"section_core_findings":       sections["core_findings"],
			"section_supporting_evidence": sections["supporting_evidence"],
			"section_contradictions":      sections["contradictions"],
		}, nil
	})

	g.AddNode("assemble", func(ctx context.Context, state State) (Patch, error) {
		order, _ := state["grouped_order"].([]string)
		grouped, _ := state["grouped_findings"].(map[string][]Finding)

		var footnotes strings.Builder
		n := 1
		footnoteIndex := make(map[string]int)
		for _, key := range order {
			for _, f := range grouped[key] {
				if f.SourceURL == "" {
					continue
				}
				if _, ok := footnoteIndex[f.SourceURL]; ok {
					continue
				}
				footnoteIndex[f.SourceURL] = n
				fmt.Fprintf(&footnotes, "[^%d]: %s\n", n, f.SourceURL)
				n++
			}
		}

		title := StateString(state, "title")
		frontmatter := fmt.Sprintf("---\ntitle: %q\ngenerated_at: %s\n---\n\n", title, time.Now().UTC().Format(time.RFC3339))

		var body strings.Builder
		body.WriteString(frontmatter)
		fmt.Fprintf(&body, "# %s\n\n", title)
		body.WriteString("## Executive Summary\n\n" + StateString(state, "section_executive_summary") + "\n\n")
		body.WriteString("## Core Findings\n\n" + StateString(state, "section_core_findings") + "\n\n")
		body.WriteString("## Supporting Evidence\n\n" + StateString(state, "section_supporting_evidence") + "\n\n")
		if c := StateString(state, "section_contradictions"); c != "" {
			body.WriteString("## Contradictions\n\n" + c + "\n\n")
		}
		if footnotes.Len() > 0 {
			body.WriteString("---\n\n" + footnotes.String())
		}

		return Patch{"markdown": body.String()}, nil
	})

	g.SetEntry("organize")
	g.AddEdge("organize", "generate_sections")
	g.AddEdge("generate_sections", "assemble")
	g.AddEdge("assemble", End)

	return g.Compile()
}
