// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/northbound/triangle/internal/documents"
)

// Claim is one extracted factual assertion to be cross-referenced.
type Claim struct {
	Text string
}

// Source is one piece of cross-referenced evidence, scored by domain
// credibility per spec §4.10.
type Source struct {
	URL             string
	Content         string
	CredibilityScore float64
}

// domainCredibility implements spec §4.10's exact table: "edu/gov/org:
// 0.8; wikipedia: 0.7; scholar/pubmed/arxiv/edu/ac.uk: 0.9; default 0.5."
// The two rules overlap on "edu" — scholar/pubmed/arxiv/ac.uk and bare edu
// domains are checked first since they carry the higher, more specific
// score; a plain .gov/.org host falls through to the lower tier.
func domainCredibility(rawURL string) float64 {
	u, err := url.Parse(rawURL)
	host := ""
	if err == nil {
		host = strings.ToLower(u.Hostname())
	} else {
		host = strings.ToLower(rawURL)
	}

	academic := []string{"scholar.google", "pubmed", "arxiv.org", "ac.uk", ".edu"}
	for _, suffix := range academic {
		if strings.Contains(host, suffix) {
			return 0.9
		}
	}
	if strings.Contains(host, "wikipedia.org") {
		return 0.7
	}
	govOrg := []string{".gov", ".org"}
	for _, suffix := range govOrg {
		if strings.HasSuffix(host, suffix) {
			return 0.8
		}
	}
	return 0.5
}

// FactVerifyDeps bundles the collaborators the fact-verification subgraph
// needs beyond the LLM: a websearch function (out of scope per spec §1 —
// callers inject whatever search provider they wire up) and an HTTP client
// for crawling result URLs, reusing documents.CrawlAndExtract the same way
// the RSS ingestor does for full-article text.
type FactVerifyDeps struct {
	LLM        *LLM
	HTTPClient *http.Client
	WebSearch  func(ctx context.Context, query string) ([]string, error)
}

// contradiction is one LLM-flagged conflict between two sources.
type contradiction struct {
	ClaimText string `json:"claim"`
	SourceA   string `json:"source_a"`
	SourceB   string `json:"source_b"`
	Summary   string `json:"summary"`
}

// BuildFactVerifyGraph compiles the "fact verification" subgraph from spec
// §4.10: extract claims, cross-reference via web search + crawl,
// credibility-score sources by domain, detect contradictions, build
// consensus.
// Input keys: text (string, the content to verify).
// Output keys: claims ([]Claim), sources ([]Source),
// contradictions ([]contradiction), consensus (string).
func BuildFactVerifyGraph(deps FactVerifyDeps) (*CompiledGraph, error) {
	g := NewGraph("fact_verification")

	g.AddNode("extract_claims", func(ctx context.Context, state State) (Patch, error) {
		text := StateString(state, "text")
		var out struct {
			Claims []string `json:"claims"`
		}
		prompt := fmt.Sprintf("Extract the distinct factual claims made in this text as a JSON object {\"claims\": [string, ...]}:\n\n%s", truncateForPrompt(text, 8000))
		if err := deps.LLM.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 500}, &out); err != nil {
			return Patch{"claims": []Claim{}}, nil
		}
		claims := make([]Claim, 0, len(out.Claims))
		for _, c := range out.Claims {
			claims = append(claims, Claim{Text: c})
		}
		return Patch{"claims": claims}, nil
	})

	g.AddNode("cross_reference", func(ctx context.Context, state State) (Patch, error) {
		claims, _ := state["claims"].([]Claim)
		if deps.WebSearch == nil {
			return Patch{"sources": []Source{}}, nil
		}

		var sources []Source
		for _, claim := range claims {
			urls, err := deps.WebSearch(ctx, claim.Text)
			if err != nil {
				continue
			}
			for _, u := range urls {
				result, err := documents.CrawlAndExtract(ctx, deps.HTTPClient, u)
				if err != nil {
					continue
				}
				sources = append(sources, Source{
					URL:              u,
					Content:          result.CleanedText,
					CredibilityScore: domainCredibility(u),
				})
			}
		}
		return Patch{"sources": sources}, nil
	})

	g.AddNode("detect_contradictions", func(ctx context.Context, state State) (Patch, error) {
		sources, _ := state["sources"].([]Source)
		if len(sources) < 2 {
			return Patch{"contradictions": []contradiction{}}, nil
		}

		var b strings.Builder
		for i, s := range sources {
			fmt.Fprintf(&b, "Source %d (%s, credibility %.1f):\n%s\n\n", i+1, s.URL, s.CredibilityScore, truncateForPrompt(s.Content, 1500))
		}

		var out struct {
			Contradictions []contradiction `json:"contradictions"`
		}
		prompt := fmt.Sprintf("Identify contradictions between these sources. Respond with JSON {\"contradictions\": [{\"claim\":string,\"source_a\":string,\"source_b\":string,\"summary\":string}]}:\n\n%s", b.String())
		if err := deps.LLM.CompleteJSON(ctx, prompt, CompleteOptions{MaxTokens: 600}, &out); err != nil {
			return Patch{"contradictions": []contradiction{}}, nil
		}
		return Patch{"contradictions": out.Contradictions}, nil
	})

	g.AddNode("build_consensus", func(ctx context.Context, state State) (Patch, error) {
		sources, _ := state["sources"].([]Source)
		contradictions, _ := state["contradictions"].([]contradiction)

		var b strings.Builder
		for _, s := range sources {
			fmt.Fprintf(&b, "- (%.1f) %s: %s\n", s.CredibilityScore, s.URL, truncateForPrompt(s.Content, 500))
		}
		contraJSON, _ := json.Marshal(contradictions)

		prompt := fmt.Sprintf("Weighing sources by credibility score, build a consensus summary. Flag unresolved contradictions.\n\nSources:\n%s\n\nKnown contradictions: %s", b.String(), string(contraJSON))
		consensus, _, err := deps.LLM.Complete(ctx, prompt, CompleteOptions{MaxTokens: 700})
		if err != nil {
			return Patch{"consensus": ""}, nil
		}
		return Patch{"consensus": consensus}, nil
	})

	g.SetEntry("extract_claims")
	g.AddEdge("extract_claims", "cross_reference")
	g.AddEdge("cross_reference", "detect_contradictions")
	g.AddEdge("detect_contradictions", "build_consensus")
	g.AddEdge("build_consensus", End)

	return g.Compile()
}
