// Package textcheck verifies the factual claims of a piece of text.
//
// A run goes through five stages: preprocess, extract, retrieve, adjudicate and
// synthesize. Each stage reads the state built so far and contributes new keys.
package textcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/truthlens/app/confidence"
	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/llm"
	"github.com/lysyi3m/truthlens/app/ocr"
	"github.com/lysyi3m/truthlens/app/pipeline"
	"github.com/lysyi3m/truthlens/app/social"
)

// Input is the material to verify. Images are OCR'd and appended to Text;
// EmbeddedPosts are post URLs whose content is resolved and appended too.
type Input struct {
	Text          string
	Images        [][]byte
	EmbeddedPosts []string
}

type Result struct {
	IsMisinformation bool            `json:"is_misinformation"`
	Verdict          Label           `json:"verdict"`
	ConfidenceScore  float64         `json:"confidence_score"`
	Report           string          `json:"report"`
	Notes            string          `json:"notes"`
	Claim            string          `json:"claim"`
	Queries          []string        `json:"queries"`
	Evidence         []evidence.Item `json:"evidence"`
	Citations        []string        `json:"citations"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// Researcher gathers evidence for a claim.
type Researcher interface {
	Search(ctx context.Context, claim string) evidence.Outcome
}

type Pipeline struct {
	model      llm.LanguageModel
	researcher Researcher
	engine     *confidence.Engine
	ocr        ocr.Extractor
	posts      social.PostLookup
}

// New builds a text pipeline. ocr and posts may be nil, in which case images
// yield no text and embedded posts are skipped.
func New(model llm.LanguageModel, researcher Researcher, engine *confidence.Engine,
	extractor ocr.Extractor, posts social.PostLookup) *Pipeline {
	if extractor == nil {
		extractor = ocr.Nop{}
	}
	if engine == nil {
		engine = confidence.NewEngine(nil)
	}
	return &Pipeline{
		model:      model,
		researcher: researcher,
		engine:     engine,
		ocr:        extractor,
		posts:      posts,
	}
}

// Run verifies in. Model failures during extraction, adjudication or synthesis
// are returned as errors; everything else degrades into the result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	state, err := pipeline.Run(ctx, State{Input: in}, reduce,
		pipeline.Stage[State, Update]{Name: "preprocess", Run: p.preprocess},
		pipeline.Stage[State, Update]{Name: "extract claims", Run: p.extractClaims},
		pipeline.Stage[State, Update]{Name: "retrieve evidence", Run: p.retrieve},
		pipeline.Stage[State, Update]{Name: "adjudicate", Run: p.adjudicate},
		pipeline.Stage[State, Update]{Name: "synthesize", Run: p.synthesize},
	)
	if err != nil {
		return nil, fmt.Errorf("text verification failed: %w", err)
	}

	adj := state.Adjudication.Value()
	items := state.Evidence.Value()

	result := &Result{
		IsMisinformation: adj.Label.IsMisinformation(),
		Verdict:          adj.Label,
		ConfidenceScore:  state.Confidence.Value(),
		Report:           state.Report.Value(),
		Notes:            state.Notes.Value(),
		Claim:            state.Claim.Value(),
		Queries:          state.Queries.Value(),
		Evidence:         items,
		Citations:        citations(items),
		Warnings:         state.Warnings,
	}

	slog.Info("Text verification completed",
		"verdict", result.Verdict,
		"confidence", result.ConfidenceScore,
		"evidence", len(items))

	return result, nil
}

func (p *Pipeline) preprocess(ctx context.Context, s State) (Update, error) {
	var b strings.Builder
	b.WriteString(s.Input.Text)

	for _, img := range s.Input.Images {
		if text := strings.TrimSpace(p.ocr.Extract(ctx, img)); text != "" {
			fmt.Fprintf(&b, "\n\n[Extracted Text from Image]:\n%s", text)
		} else {
			b.WriteString("\n\n[Image Processing]: No text detected or OCR failed.")
		}
	}

	for _, u := range s.Input.EmbeddedPosts {
		post, err := p.embeddedPost(ctx, u)
		if err != nil {
			slog.Warn("Failed to process embedded post", "url", u, "error", err)
			continue
		}
		fmt.Fprintf(&b, "\n\n[Embedded X Post by @%s]:\n%s\n(Date: %s)", post.Author, post.Text, post.CreatedAt)
	}

	return Update{Source: pipeline.Set(b.String())}, nil
}

func (p *Pipeline) embeddedPost(ctx context.Context, postURL string) (*social.Post, error) {
	if p.posts == nil {
		return nil, errors.New("post lookup is not configured")
	}
	id := social.PostID(postURL)
	if id == "" {
		return nil, errors.New("no post id in url")
	}
	return p.posts.Lookup(ctx, id)
}

func (p *Pipeline) extractClaims(ctx context.Context, s State) (Update, error) {
	source := strings.TrimSpace(s.Source.Value())
	if source == "" {
		return Update{Claim: pipeline.Set("")}, nil
	}

	out, err := p.model.Infer(ctx, fmt.Sprintf(extractPrompt, source))
	if err != nil {
		return Update{}, fmt.Errorf("failed to extract claims: %w", err)
	}

	claim := strings.TrimSpace(out)
	if strings.Contains(claim, noClaimsSentinel) {
		claim = ""
	}

	slog.Debug("Claims extracted", "found", claim != "", "length", len(claim))

	return Update{Claim: pipeline.Set(claim)}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, s State) (Update, error) {
	claim := s.Claim.Value()
	if claim == "" || p.researcher == nil {
		return Update{
			Queries:  pipeline.Set([]string{}),
			Evidence: pipeline.Set([]evidence.Item{}),
		}, nil
	}

	outcome := p.researcher.Search(ctx, claim)

	queries := outcome.Queries
	if queries == nil {
		queries = []string{}
	}
	items := outcome.Items
	if items == nil {
		items = []evidence.Item{}
	}

	return Update{Queries: pipeline.Set(queries), Evidence: pipeline.Set(items)}, nil
}

func (p *Pipeline) adjudicate(ctx context.Context, s State) (Update, error) {
	claim := s.Claim.Value()
	items := s.Evidence.Value()

	fixed := func(notes string) Update {
		return Update{
			Notes:        pipeline.Set(notes),
			Adjudication: pipeline.Set(Adjudication{Label: Unverified, Certainty: Unverified.Certainty()}),
		}
	}

	if claim == "" {
		return fixed(noClaimNotes), nil
	}
	if len(items) == 0 {
		return fixed(noEvidenceNotes), nil
	}

	prompt := fmt.Sprintf(adjudicatePrompt,
		claim,
		formatEvidence(items),
		evidence.Truncate(s.Source.Value(), maxSourceChars))

	notes, err := p.model.Infer(ctx, prompt)
	if err != nil {
		return Update{}, fmt.Errorf("failed to adjudicate claims: %w", err)
	}

	update := Update{Notes: pipeline.Set(notes)}

	label, certainty, err := parseVerdict(notes)
	if err != nil {
		label, certainty = scanVerdict(notes)
		slog.Warn("Adjudication output malformed", "error", err, "fallback", label)
		update.Warnings = []string{fmt.Sprintf("adjudication: %v; verdict inferred from keywords", err)}
	}

	update.Adjudication = pipeline.Set(Adjudication{Label: label, Certainty: certainty})
	return update, nil
}

func (p *Pipeline) synthesize(ctx context.Context, s State) (Update, error) {
	report, err := p.model.Infer(ctx, fmt.Sprintf(synthesizePrompt, s.Notes.Value()))
	if err != nil {
		return Update{}, fmt.Errorf("failed to synthesize report: %w", err)
	}

	score := p.engine.Calculate(s.Claim.Value(), s.Evidence.Value(), s.Adjudication.Value().Certainty)

	return Update{
		Report:     pipeline.Set(strings.TrimSpace(report)),
		Confidence: pipeline.Set(score),
	}, nil
}

func formatEvidence(items []evidence.Item) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", it.URL, evidence.Truncate(it.Content, maxEvidenceChars)))
	}
	return strings.Join(blocks, "\n\n")
}

// citations returns the distinct evidence URLs in evidence order.
func citations(items []evidence.Item) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if _, ok := seen[it.URL]; ok {
			continue
		}
		seen[it.URL] = struct{}{}
		out = append(out, it.URL)
	}
	return out
}
