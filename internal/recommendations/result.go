package recommendations

import (
	"encoding/json"
	"fmt"
)

// AnalysisResult is the payload produced by the analysis backend for one uploaded plant image.
type AnalysisResult struct {
	PredictedTraits            map[string]any              `json:"predicted_traits"`
	PredictedGenotype          Genotype                    `json:"predicted_genotype"`
	Weather                    json.RawMessage             `json:"weather,omitempty"`
	BreedingRecommendations    []BreedingRecommendation    `json:"breeding_recommendations"`
	ReplacementRecommendations []ReplacementRecommendation `json:"replacement_recommendations"`
}

type Genotype struct {
	GenotypeID  string   `json:"genotype_id"`
	Genes       []string `json:"genes,omitempty"`
	Description string   `json:"description,omitempty"`
}

// BreedingRecommendation proposes a partner to cross with the analysed plant.
type BreedingRecommendation struct {
	HybridName      string         `json:"hybrid_name"`
	YourGenotype    string         `json:"your_genotype"`
	PartnerGenotype string         `json:"partner_genotype"`
	MaturityDays    json.Number    `json:"maturity_days"`
	TotalScore      json.Number    `json:"total_score,omitempty"`
	WeatherScore    json.Number    `json:"weather_score,omitempty"`
	ExpectedTraits  map[string]any `json:"expected_traits,omitempty"`
}

// ReplacementRecommendation proposes a hybrid to plant instead of the analysed crop.
type ReplacementRecommendation struct {
	HybridName         string         `json:"hybrid_name"`
	ParentGenotypes    []string       `json:"parent_genotypes,omitempty"`
	MaturityDays       json.Number    `json:"maturity_days"`
	TotalScore         json.Number    `json:"total_score,omitempty"`
	CompatibilityScore json.Number    `json:"compatibility_score,omitempty"`
	WeatherScore       json.Number    `json:"weather_score,omitempty"`
	ExpectedTraits     map[string]any `json:"expected_traits,omitempty"`
}

// severeResistance lists the disease_resistance values that make a plant unfit for breeding.
var severeResistance = map[string]struct{}{
	"Susceptible": {},
	"Low":         {},
}

// IsSeverelyDiseased reports whether predicted_traits.disease_resistance rules out breeding.
func (r AnalysisResult) IsSeverelyDiseased() bool {
	value, ok := r.PredictedTraits["disease_resistance"]
	if !ok {
		return false
	}
	text, ok := value.(string)
	if !ok {
		return false
	}
	_, severe := severeResistance[text]
	return severe
}

func (r AnalysisResult) GenotypeID() string {
	return r.PredictedGenotype.GenotypeID
}

// ParseResult decodes an analysis payload.
func ParseResult(data []byte) (AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return AnalysisResult{}, fmt.Errorf("decoding analysis result: %w", err)
	}
	return result, nil
}

func (r AnalysisResult) slotCount(kind Kind) int {
	switch kind {
	case KindBreeding:
		return len(r.BreedingRecommendations)
	case KindReplacement:
		return len(r.ReplacementRecommendations)
	}
	return 0
}

func (r AnalysisResult) hybrid(slot Slot) (name string, maturity string) {
	switch slot.Kind {
	case KindBreeding:
		rec := r.BreedingRecommendations[slot.Index]
		return rec.HybridName, rec.MaturityDays.String()
	default:
		rec := r.ReplacementRecommendations[slot.Index]
		return rec.HybridName, rec.MaturityDays.String()
	}
}
