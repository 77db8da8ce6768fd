package judge

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Status tags a Verdict as a real score or a judge malfunction.
type Status string

const (
	// StatusScored means the model returned a valid score.
	StatusScored Status = "scored"
	// StatusJudgeFailed means the judge could not produce a score.
	StatusJudgeFailed Status = "judge_failed"
)

// Sentinel reasons. They are part of the result file format.
const (
	ReasonInvalidJSON  = "Invalid JSON output from model."
	ReasonInvalidScore = "Invalid or missing score."
	failedPrefix       = "Evaluation failed: "
)

// Score bounds.
const (
	MinScore = 1
	MaxScore = 10
)

// Verdict is the outcome of one evaluation. A scored verdict always has a
// Score in [MinScore, MaxScore]; a failed verdict always has Score 0 and
// one of the sentinel reasons, so Score 0 never stands for a real grade.
type Verdict struct {
	Status Status `json:"status"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Scored returns a successful verdict. Out of range scores are turned into
// the invalid-score failure.
func Scored(score int, reason string) Verdict {
	if score < MinScore || score > MaxScore {
		return Failed(ReasonInvalidScore)
	}
	return Verdict{Status: StatusScored, Score: score, Reason: reason}
}

// Failed returns a judge-failure verdict with the given reason.
func Failed(reason string) Verdict {
	return Verdict{Status: StatusJudgeFailed, Score: 0, Reason: reason}
}

// CallFailed returns the verdict for a judge call that errored.
func CallFailed(err error) Verdict {
	return Failed(failedPrefix + err.Error())
}

// OK reports whether v carries a real score.
func (v Verdict) OK() bool { return v.Status == StatusScored }

// Parse validates raw judge output. Output that is not a single JSON
// document yields ReasonInvalidJSON. A document without an integer "score"
// in [1, 10] yields ReasonInvalidScore and any reason the model gave is
// discarded. Floats such as 8.0, numeric strings and booleans are not
// integers.
func Parse(raw string) Verdict {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Failed(ReasonInvalidJSON)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Failed(ReasonInvalidJSON)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return Failed(ReasonInvalidScore)
	}
	num, ok := obj["score"].(json.Number)
	if !ok {
		return Failed(ReasonInvalidScore)
	}
	score, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil || score < MinScore || score > MaxScore {
		return Failed(ReasonInvalidScore)
	}

	reason, _ := obj["reason"].(string)
	return Verdict{Status: StatusScored, Score: int(score), Reason: reason}
}

// String renders v as compact JSON.
func (v Verdict) String() string {
	var b bytes.Buffer
	_ = json.NewEncoder(&b).Encode(v)
	return strings.TrimSpace(b.String())
}
