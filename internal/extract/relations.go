package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ppiankov/ontograph/internal/model"
)

// DefaultRawConfidence is assumed when a proposed relation carries none
const DefaultRawConfidence = 0.8

// rawRelation mirrors what the extraction step emits. Confidence may arrive
// as a number or a string; evidence is sometimes named desc.
type rawRelation struct {
	Target     string `json:"target"`
	Type       string `json:"type"`
	Confidence any    `json:"confidence"`
	Evidence   string `json:"evidence"`
	Desc       string `json:"desc"`
}

// DecodeResult is the outcome of decoding one term's raw relations
type DecodeResult struct {
	Relations []model.RawRelation
	Repaired  bool // Input was not valid JSON and was repaired first
}

// RelationDecoder parses raw relation text produced by the extraction step
type RelationDecoder struct {
	defaultConfidence float64
	cleaner           *EvidenceCleaner
}

// NewRelationDecoder creates a decoder; a non-positive default uses DefaultRawConfidence
func NewRelationDecoder(defaultConfidence float64, cleaner *EvidenceCleaner) *RelationDecoder {
	if defaultConfidence <= 0 {
		defaultConfidence = DefaultRawConfidence
	}
	if cleaner == nil {
		cleaner = NewEvidenceCleaner(0)
	}
	return &RelationDecoder{defaultConfidence: defaultConfidence, cleaner: cleaner}
}

// Decode parses content as a JSON array (or single object) of relations.
// Malformed JSON is repaired once before giving up.
func (d *RelationDecoder) Decode(content string) (DecodeResult, error) {
	content = strings.TrimSpace(content)
	if content == "" || content == "null" {
		return DecodeResult{}, nil
	}

	raws, err := unmarshalRelations(content)
	repaired := false
	if err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return DecodeResult{}, fmt.Errorf("failed to parse raw relations: %w", err)
		}
		raws, err = unmarshalRelations(fixed)
		if err != nil {
			return DecodeResult{}, fmt.Errorf("failed to parse repaired raw relations: %w", err)
		}
		repaired = true
	}

	out := make([]model.RawRelation, 0, len(raws))
	for _, r := range raws {
		evidence := r.Evidence
		if evidence == "" {
			evidence = r.Desc
		}
		out = append(out, model.RawRelation{
			Target:     strings.TrimSpace(r.Target),
			Type:       strings.ToLower(strings.TrimSpace(r.Type)),
			Confidence: d.confidence(r.Confidence),
			Evidence:   d.cleaner.Clean(evidence),
		})
	}

	return DecodeResult{Relations: out, Repaired: repaired}, nil
}

func unmarshalRelations(content string) ([]rawRelation, error) {
	var list []rawRelation
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list, nil
	}

	var single rawRelation
	if err := json.Unmarshal([]byte(content), &single); err != nil {
		return nil, err
	}
	return []rawRelation{single}, nil
}

func (d *RelationDecoder) confidence(v any) float64 {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return d.defaultConfidence
		}
		f = parsed
	default:
		return d.defaultConfidence
	}

	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
