// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
)

// EditOp enumerates the operation variants a ManuscriptEdit can carry.
type EditOp string

const (
	EditInsert  EditOp = "insert"
	EditReplace EditOp = "replace"
	EditDelete  EditOp = "delete"
)

// ManuscriptEdit is a single proposed change to a manuscript, scoped to a
// chapter range, per spec §4.10's "typed ManuscriptEdit (a sum of
// operation variants)."  Only the fields relevant to Op are meaningful:
// Insert/Replace carry Text, Delete leaves it empty.
type ManuscriptEdit struct {
	Op           EditOp `json:"op"`
	ChapterStart int    `json:"chapter_start"`
	ChapterEnd   int    `json:"chapter_end"`
	Text         string `json:"text,omitempty"`
	Rationale    string `json:"rationale,omitempty"`
}

// ManuscriptContext is the prepared input every fiction node downstream of
// "prepare_context" reads from.
type ManuscriptContext struct {
	Outline      string
	ChapterRange [2]int
	Excerpt      string
}

// BuildFictionContextGraph compiles the context-preparation stage of the
// fiction-editing family: given a full manuscript and a chapter range, it
// extracts the relevant excerpt and pairs it with the outline section that
// covers the same range.
// Input keys: manuscript (string), outline (string), chapter_start (int),
// chapter_end (int), chapter_boundaries ([]int, byte offsets into
// manuscript marking each chapter's start).
// Output keys: context (ManuscriptContext).
func BuildFictionContextGraph() (*CompiledGraph, error) {
	g := NewGraph("fiction_context_preparation")

	g.AddNode("extract_excerpt", func(ctx context.Context, state State) (Patch, error) {
		manuscript := StateString(state, "manuscript")
		boundaries, _ := state["chapter_boundaries"].([]int)
		start, _ := state["chapter_start"].(int)
		end, _ := state["chapter_end"].(int)

		excerpt := manuscript
		if len(boundaries) > start && start >= 0 {
			from := boundaries[start]
			to := len(manuscript)
			if end+1 < len(boundaries) {
				to = boundaries[end+1]
			}
			if from >= 0 && from <= to && to <= len(manuscript) {
				excerpt = manuscript[from:to]
			}
		}

		mc := ManuscriptContext{
			Outline:      StateString(state, "outline"),
			ChapterRange: [2]int{start, end},
			Excerpt:      excerpt,
		}
		return Patch{"context": mc}, nil
	})

	g.SetEntry("extract_excerpt")
	g.AddEdge("extract_excerpt", End)
	return g.Compile()
}

// BuildFictionGenerationGraph compiles the generation stage: given a
// ManuscriptContext and an editorial instruction, produce a proposed
// ManuscriptEdit.
// Input keys: context (ManuscriptContext), instruction (string).
// Output keys: edit (ManuscriptEdit).
func BuildFictionGenerationGraph(llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("fiction_generation")

	g.AddNode("generate", func(ctx context.Context, state State) (Patch, error) {
		mc, _ := state["context"].(ManuscriptContext)
		instruction := StateString(state, "instruction")

		prompt := fmt.Sprintf(`Outline:
%s

Chapters %d-%d excerpt:
%s

Editorial instruction: %s

Propose one edit. Respond with JSON: {"op": "insert"|"replace"|"delete", "chapter_start": int, "chapter_end": int, "text": string, "rationale": string}.`,
			mc.Outline, mc.ChapterRange[0], mc.ChapterRange[1], truncateForPrompt(mc.Excerpt, 8000), instruction)

		var edit ManuscriptEdit
		if err := llm.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 2000}, &edit); err != nil {
			edit = ManuscriptEdit{Op: EditReplace, ChapterStart: mc.ChapterRange[0], ChapterEnd: mc.ChapterRange[1], Rationale: "generation failed, no-op edit returned"}
		}
		return Patch{"edit": edit}, nil
	})

	g.SetEntry("generate")
	g.AddEdge("generate", End)
	return g.Compile()
}

// BuildFictionValidationGraph compiles the validation stage: checks a
// proposed edit for internal consistency against the outline and flags
// continuity problems rather than rejecting silently.
// Input keys: context (ManuscriptContext), edit (ManuscriptEdit).
// Output keys: valid (bool), issues ([]string).
func BuildFictionValidationGraph(llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("fiction_validation")

	g.AddNode("validate", func(ctx context.Context, state State) (Patch, error) {
		mc, _ := state["context"].(ManuscriptContext)
		edit, _ := state["edit"].(ManuscriptEdit)

		var out struct {
			Valid  bool     `json:"valid"`
			Issues []string `json:"issues"`
		}
		editJSON, _ := json.Marshal(edit)
		prompt := fmt.Sprintf("Outline:\n%s\n\nProposed edit:\n%s\n\nDoes this edit contradict the outline or break continuity? Respond with JSON {\"valid\": bool, \"issues\": [string]}.", mc.Outline, string(editJSON))
		if err := llm.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 400}, &out); err != nil {
			return Patch{"valid": false, "issues": []string{"validation could not be completed"}}, nil
		}
		return Patch{"valid": out.Valid, "issues": out.Issues}, nil
	})

	g.SetEntry("validate")
	g.AddEdge("validate", End)
	return g.Compile()
}

// BuildFictionResolutionGraph compiles the resolution stage: when
// validation flags issues, ask the LLM to revise the edit to address them;
// otherwise pass the edit through unchanged.
// Input keys: context (ManuscriptContext), edit (ManuscriptEdit), valid
// (bool), issues ([]string).
// Output keys: edit (ManuscriptEdit, possibly revised).
func BuildFictionResolutionGraph(llm *LLM) (*CompiledGraph, error) {
	g := NewGraph("fiction_resolution")

	g.AddNode("route", func(ctx context.Context, state State) (Patch, error) {
		return nil, nil
	})

	g.AddNode("revise", func(ctx context.Context, state State) (Patch, error) {
		mc, _ := state["context"].(ManuscriptContext)
		edit, _ := state["edit"].(ManuscriptEdit)
		issues, _ := state["issues"].([]string)

		editJSON, _ := json.Marshal(edit)
		prompt := fmt.Sprintf("Outline:\n%s\n\nOriginal edit:\n%s\n\nIssues to fix:\n%v\n\nRevise the edit to resolve these issues. Respond with the same JSON edit shape.", mc.Outline, string(editJSON), issues)

		var revised ManuscriptEdit
		if err := llm.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 2000}, &revised); err != nil {
			return Patch{"edit": edit}, nil
		}
		return Patch{"edit": revised}, nil
	})

	g.SetEntry("route")
	g.AddConditionalEdge("route", func(state State) string {
		if StateBool(state, "valid") {
			return End
		}
		return "revise"
	})
	g.AddEdge("revise", End)

	return g.Compile()
}

// BuildFictionBookGenerationGraph compiles the top-level book-generation
// stage: drives the context/generation/validation/resolution stages
// chapter by chapter across a whole outline, accumulating accepted edits.
// Input keys: manuscript (string), outline (string), chapter_boundaries
// ([]int), chapter_count (int), instruction (string).
// Output keys: edits ([]ManuscriptEdit).
func BuildFictionBookGenerationGraph(llm *LLM) (*CompiledGraph, error) {
	contextGraph, err := BuildFictionContextGraph()
	if err != nil {
		return nil, err
	}
	generationGraph, err := BuildFictionGenerationGraph(llm)
	if err != nil {
		return nil, err
	}
	validationGraph, err := BuildFictionValidationGraph(llm)
	if err != nil {
		return nil, err
	}
	resolutionGraph, err := BuildFictionResolutionGraph(llm)
	if err != nil {
		return nil, err
	}

	g := NewGraph("fiction_book_generation")

	g.AddNode("drive_chapters", func(ctx context.Context, state State) (Patch, error) {
		chapterCount, _ := state["chapter_count"].(int)
		manuscript := StateString(state, "manuscript")
		outline := StateString(state, "outline")
		boundaries, _ := state["chapter_boundaries"].([]int)
		instruction := StateString(state, "instruction")

		var edits []ManuscriptEdit
		for ch := 0; ch < chapterCount; ch++ {
			chapterState := State{
				"manuscript":         manuscript,
				"outline":            outline,
				"chapter_boundaries": boundaries,
				"chapter_start":      ch,
				"chapter_end":        ch,
				"instruction":        instruction,
			}

			ctxOut, err := contextGraph.Invoke(ctx, "", chapterState)
			if err != nil {
				continue
			}
			genOut, err := generationGraph.Invoke(ctx, "", ctxOut)
			if err != nil {
				continue
			}
			valOut, err := validationGraph.Invoke(ctx, "", genOut)
			if err != nil {
				continue
			}
			resOut, err := resolutionGraph.Invoke(ctx, "", valOut)
			if err != nil {
				continue
			}
			if edit, ok := resOut["edit"].(ManuscriptEdit); ok {
				edits = append(edits, edit)
			}
		}

		return Patch{"edits": edits}, nil
	})

	g.SetEntry("drive_chapters")
	g.AddEdge("drive_chapters", End)
	return g.Compile()
}
