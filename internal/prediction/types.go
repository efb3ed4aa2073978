package prediction

import (
	"context"
	"strconv"
	"time"
)

type Result string

const (
	ResultCancer    Result = "Cancer"
	ResultNonCancer Result = "Non-cancer"
)

const (
	SuggestionCancer    = "Segera periksa ke dokter!"
	SuggestionNonCancer = "Penyakit kanker tidak terdeteksi."
)

// TimeLayout renders timestamps as ISO-8601 UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one persisted prediction. Records are never updated or deleted.
type Record struct {
	ID         string  `json:"id" firestore:"id"`
	Result     Result  `json:"result" firestore:"result"`
	Suggestion string  `json:"suggestion" firestore:"suggestion"`
	Confidence float64 `json:"confidence" firestore:"confidence"`
	CreatedAt  string  `json:"createdAt" firestore:"createdAt"`
}

// Store owns the lifecycle of prediction records.
type Store interface {
	// Create persists rec under a store-generated id and returns the record
	// with ID set. Any ID on the input is ignored.
	Create(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context) ([]Record, error)
}

// Classifier produces a confidence score in [0,1] from a normalized tensor.
type Classifier interface {
	Infer(ctx context.Context, input []float32) (float32, error)
}

// Upload is the raw image submitted for prediction.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Classify applies the decision threshold. A score equal to the threshold is
// Non-cancer.
func Classify(score, threshold float64) (Result, string) {
	if score > threshold {
		return ResultCancer, SuggestionCancer
	}
	return ResultNonCancer, SuggestionNonCancer
}

// Confidence widens a float32 model score using its shortest decimal form so
// 0.9f is stored as 0.9 rather than 0.8999999761581421.
func Confidence(score float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(score), 'g', -1, 32), 64)
	if err != nil {
		return float64(score)
	}
	return v
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
