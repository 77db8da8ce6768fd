package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/chefai-go/internal/llm"
	"github.com/54b3r/chefai-go/internal/prompt"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want Verdict
	}{
		{"valid", `{"score": 8, "reason": "clear and complete"}`, Verdict{StatusScored, 8, "clear and complete"}},
		{"lower bound", `{"score": 1, "reason": "off-topic"}`, Verdict{StatusScored, 1, "off-topic"}},
		{"upper bound", `{"score": 10, "reason": "perfect"}`, Verdict{StatusScored, 10, "perfect"}},
		{"surrounding whitespace", "\n  {\"score\": 7, \"reason\": \"ok\"}  \n", Verdict{StatusScored, 7, "ok"}},
		{"missing reason", `{"score": 6}`, Verdict{StatusScored, 6, ""}},
		{"too high", `{"score": 15, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"zero", `{"score": 0, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"negative", `{"score": -3, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"float", `{"score": 8.0, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"fraction", `{"score": 7.5, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"string score", `{"score": "8", "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"bool score", `{"score": true, "reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"null score", `{"score": null}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"missing score", `{"reason": "x"}`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"array", `[8, "x"]`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"bare number", `8`, Verdict{StatusJudgeFailed, 0, ReasonInvalidScore}},
		{"not json", `not json`, Verdict{StatusJudgeFailed, 0, ReasonInvalidJSON}},
		{"empty", ``, Verdict{StatusJudgeFailed, 0, ReasonInvalidJSON}},
		{"truncated", `{"score": 8, "reas`, Verdict{StatusJudgeFailed, 0, ReasonInvalidJSON}},
		{"trailing text", `{"score": 8, "reason": "x"} thanks!`, Verdict{StatusJudgeFailed, 0, ReasonInvalidJSON}},
		{"code fence", "```json\n{\"score\": 8}\n```", Verdict{StatusJudgeFailed, 0, ReasonInvalidJSON}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tc.raw); got != tc.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		`{"score": 8, "reason": "ok"}`,
		`{"score": 15}`,
		`not json`,
		`{"score": 1e1}`,
		`[]`,
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		v := Parse(raw)
		switch v.Status {
		case StatusScored:
			if v.Score < MinScore || v.Score > MaxScore {
				t.Fatalf("scored verdict out of range: %+v", v)
			}
		case StatusJudgeFailed:
			if v.Score != 0 {
				t.Fatalf("failed verdict with non-zero score: %+v", v)
			}
			if v.Reason != ReasonInvalidJSON && v.Reason != ReasonInvalidScore {
				t.Fatalf("unexpected failure reason: %q", v.Reason)
			}
		default:
			t.Fatalf("unknown status %q", v.Status)
		}
	})
}

func TestScored_NormalisesOutOfRange(t *testing.T) {
	t.Parallel()

	if v := Scored(11, "x"); v.OK() || v.Reason != ReasonInvalidScore {
		t.Errorf("Scored(11) = %+v", v)
	}
	if v := Scored(9, "good"); !v.OK() || v.Score != 9 {
		t.Errorf("Scored(9) = %+v", v)
	}
}

// fakeGenerator captures the prompt and options of the last call.
type fakeGenerator struct {
	reply   string
	err     error
	prompt  string
	options llm.Options
}

func (f *fakeGenerator) Generate(_ context.Context, p string, opts ...llm.Option) (string, error) {
	f.prompt = p
	f.options = llm.Apply(opts...)
	return f.reply, f.err
}

func newTestJudge(t *testing.T, gen llm.Generator) *Judge {
	t.Helper()
	j, err := New(gen, prompt.Default(), Config{Temperature: 0.2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

func TestEvaluate_Scored(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: `{"score": 8, "reason": "clear and complete"}`}
	v := newTestJudge(t, gen).Evaluate(context.Background(), "vegan lasagna recipe", "Layer noodles with tofu ricotta.", "")

	if v != (Verdict{StatusScored, 8, "clear and complete"}) {
		t.Errorf("verdict = %+v", v)
	}
	if !strings.Contains(gen.prompt, `"""vegan lasagna recipe"""`) {
		t.Error("prompt should quote the question")
	}
	if !strings.Contains(gen.prompt, `"""Layer noodles with tofu ricotta."""`) {
		t.Error("prompt should quote the answer")
	}
	if !strings.Contains(gen.prompt, `"""N/A"""`) {
		t.Error("missing reference should render as N/A")
	}
	if !gen.options.JSON {
		t.Error("judge should request JSON output")
	}
	if gen.options.Temperature == nil || *gen.options.Temperature != 0.2 {
		t.Errorf("judge temperature = %v, want 0.2", gen.options.Temperature)
	}
}

func TestEvaluate_Reference(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: `{"score": 5, "reason": "partial"}`}
	newTestJudge(t, gen).Evaluate(context.Background(), "q", "a", "Bake at 180C for 40 minutes.")
	if !strings.Contains(gen.prompt, `"""Bake at 180C for 40 minutes."""`) {
		t.Error("reference answer should be interpolated")
	}
}

func TestEvaluate_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		gen  *fakeGenerator
		want Verdict
	}{
		{"bad json", &fakeGenerator{reply: "I think it's an 8"}, Failed(ReasonInvalidJSON)},
		{"out of range", &fakeGenerator{reply: `{"score": 15, "reason": "x"}`}, Failed(ReasonInvalidScore)},
		{"call error", &fakeGenerator{err: errors.New("429 resource exhausted")}, Failed("Evaluation failed: 429 resource exhausted")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := newTestJudge(t, tc.gen).Evaluate(context.Background(), "q", "a", "")
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
			if got.OK() {
				t.Error("failure must not be reported as scored")
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, prompt.Default(), Config{}); err == nil {
		t.Error("expected error for nil generator")
	}
	if _, err := New(&fakeGenerator{}, nil, Config{}); err == nil {
		t.Error("expected error for nil templates")
	}
}
