// Package draft turns the generative drafter's free-text output into a typed
// draft. The drafter is an untrusted boundary: parsing is total and every
// violation is reported as ErrMalformedDraft instead of being assumed away.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"swing-advisor/internal/domain"
)

// ErrMalformedDraft marks drafter output that cannot be parsed into the
// expected structured fields. It degrades one symbol to HOLD and never aborts
// a batch.
var ErrMalformedDraft = errors.New("malformed draft")

// Draft is a validated drafter proposal, before scoring.
type Draft struct {
	Action            domain.Action
	LLMConfidence     float64
	EntryPrice        float64
	TargetPrice       float64
	StopLoss          float64
	HoldingPeriodDays int
	Reasoning         string
	CitationIDs       []string
}

type rawDraft struct {
	Action            string   `json:"action"`
	Confidence        *float64 `json:"confidence"`
	EntryPrice        *float64 `json:"entry_price"`
	TargetPrice       *float64 `json:"target_price"`
	StopLoss          *float64 `json:"stop_loss"`
	HoldingPeriodDays *int     `json:"holding_period_days"`
	Reasoning         string   `json:"reasoning"`
	Citations         []string `json:"citations"`
}

// Parse extracts and validates the first JSON object found in the drafter's
// raw output. Chat models regularly wrap JSON in prose or code fences, so the
// object is located positionally rather than trusting the whole payload.
func Parse(raw string) (Draft, error) {
	payload, err := extractObject(raw)
	if err != nil {
		return Draft{}, err
	}

	var rd rawDraft
	decoder := json.NewDecoder(strings.NewReader(payload))
	if err := decoder.Decode(&rd); err != nil {
		return Draft{}, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedDraft, err)
	}

	action := domain.Action(strings.ToUpper(strings.TrimSpace(rd.Action)))
	if !action.IsValid() {
		return Draft{}, fmt.Errorf("%w: missing or unknown action %q", ErrMalformedDraft, rd.Action)
	}

	if rd.Confidence == nil {
		return Draft{}, fmt.Errorf("%w: missing confidence", ErrMalformedDraft)
	}
	confidence := *rd.Confidence
	if math.IsNaN(confidence) || confidence < 0 || confidence > 100 {
		return Draft{}, fmt.Errorf("%w: confidence %v outside [0,100]", ErrMalformedDraft, confidence)
	}

	d := Draft{
		Action:        action,
		LLMConfidence: confidence,
		Reasoning:     strings.TrimSpace(rd.Reasoning),
		CitationIDs:   dedupeIDs(rd.Citations),
	}

	if rd.HoldingPeriodDays != nil {
		if *rd.HoldingPeriodDays < 0 {
			return Draft{}, fmt.Errorf("%w: negative holding period", ErrMalformedDraft)
		}
		d.HoldingPeriodDays = *rd.HoldingPeriodDays
	}

	// Price levels are mandatory for directional calls only.
	if action != domain.ActionHold {
		entry, err := requirePrice("entry_price", rd.EntryPrice)
		if err != nil {
			return Draft{}, err
		}
		target, err := requirePrice("target_price", rd.TargetPrice)
		if err != nil {
			return Draft{}, err
		}
		stop, err := requirePrice("stop_loss", rd.StopLoss)
		if err != nil {
			return Draft{}, err
		}
		d.EntryPrice, d.TargetPrice, d.StopLoss = entry, target, stop
	} else {
		if rd.EntryPrice != nil {
			d.EntryPrice = *rd.EntryPrice
		}
		if rd.TargetPrice != nil {
			d.TargetPrice = *rd.TargetPrice
		}
		if rd.StopLoss != nil {
			d.StopLoss = *rd.StopLoss
		}
	}

	return d, nil
}

func requirePrice(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedDraft, field)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, fmt.Errorf("%w: %s %v is not a positive price", ErrMalformedDraft, field, *v)
	}
	return *v, nil
}

// extractObject finds the outermost JSON object in the raw text.
func extractObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in output", ErrMalformedDraft)
	}
	return raw[start : end+1], nil
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
