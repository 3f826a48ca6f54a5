// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
)

// assessmentVerdict is the structured JSON shape the assessment LLM node
// must produce, per spec §4.10.
type assessmentVerdict struct {
	Assessment      string   `json:"assessment"`
	Sufficient      bool     `json:"sufficient"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	MissingInfo     []string `json:"missing_info"`
	HasRelevantInfo bool     `json:"has_relevant_info"`
}

// neutralAssessment is returned whenever the LLM node's JSON reply fails to
// parse, per spec §7's "non-retryable LLM error" rule: the subgraph
// returns a safe default rather than failing the caller's turn.
func neutralAssessment() assessmentVerdict {
	return assessmentVerdict{
		Sufficient:      false,
		Confidence:      0.5,
		Reasoning:       "assessment could not be parsed",
		HasRelevantInfo: false,
	}
}

// BuildAssessmentGraph compiles the two-node assessment subgraph from spec
// §4.10: a prompt node that asks the LLM for a structured verdict over
// {query, results, context?, domain?}, and a parse/validate node.
// Input keys: query (string), results ([]string), context (string,
// optional), domain (string, optional).
// Output keys: assessment, sufficient, confidence, reasoning, missing_info,
// has_relevant_info.
func BuildAssessmentGraph(llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("assessment")

	g.AddNode("prompt", func(ctx context.Context, state State) (Patch, error) {
		query := StateString(state, "query")
		results, _ := state["results"].([]string)
		domain := StateString(state, "domain")
		context_ := StateString(state, "context")

		prompt := fmt.Sprintf(`Query: %s
Domain: %s
Additional context: %s
Retrieved results:
%s

Assess whether the retrieved results are sufficient to answer the query. Respond with a JSON object with keys: assessment (string summary), sufficient (bool), confidence (0-1 float), reasoning (string), missing_info (array of strings), has_relevant_info (bool).`,
			query, domain, context_, joinNumbered(results))

		text, _, err := llm.Complete(ctx, prompt, CompleteOptions{
			SystemPrompt: "You are a research assistant that judges whether retrieved evidence answers a question. Always reply with a single JSON object and nothing else.",
			JSONMode:     true,
			MaxTokens:    400,
		})
		if err != nil {
			return Patch{"raw_verdict": ""}, nil
		}
		return Patch{"raw_verdict": text}, nil
	})

	g.AddNode("parse", func(ctx context.Context, state State) (Patch, error) {
		raw := StateString(state, "raw_verdict")
		var v assessmentVerdict
		if raw == "" {
			v = neutralAssessment()
		} else if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = neutralAssessment()
		}
		return Patch{
			"assessment":        v.Assessment,
			"sufficient":        v.Sufficient,
			"confidence":        v.Confidence,
			"reasoning":         v.Reasoning,
			"missing_info":      v.MissingInfo,
			"has_relevant_info": v.HasRelevantInfo,
		}, nil
	})

	g.SetEntry("prompt")
	g.AddEdge("prompt", "parse")
	g.AddEdge("parse", End)

	return g.Compile()
}

func joinNumbered(items []string) string {
	out := ""
	for i, item := range items {
		out += fmt.Sprintf("%d. %s\n", i+1, item)
	}
	return out
}
