package points

import (
	"testing"

	"pgregory.net/rapid"

	"pabuk-rewards/internal/model"
)

var (
	statuses   = []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusFeatured}
	categories = []model.Category{
		model.CategoryFolktale, model.CategoryProverb, model.CategoryHistory, model.CategoryDialect,
		model.CategoryFolkSong, model.CategoryFestivalSound, model.CategoryLandmark, model.CategoryLandscape,
		model.CategoryCulturalObject, model.CategoryFood, model.CategoryOther, "UNMAPPED",
	}
)

func genInput(t *rapid.T) (Input, Options) {
	in := Input{
		Type:     rapid.SampledFrom(model.DataTypes()).Draw(t, "type"),
		Category: rapid.SampledFrom(categories).Draw(t, "category"),
		Status:   rapid.SampledFrom(statuses).Draw(t, "status"),
	}
	if rapid.Bool().Draw(t, "rated") {
		r := rapid.IntRange(MinRating, MaxRating).Draw(t, "rating")
		in.QualityRating = &r
	}
	opts := Options{
		FirstInProvince:  rapid.Bool().Draw(t, "first"),
		Underrepresented: rapid.Bool().Draw(t, "underrepresented"),
	}
	return in, opts
}

// TestCalculatePureProperty checks that identical inputs give identical results.
func TestCalculatePureProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in, opts := genInput(t)

		a, err := Calculate(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := Calculate(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != b {
			t.Fatalf("Calculate not deterministic: %+v vs %+v", a, b)
		}
	})
}

// TestTotalNonNegativeProperty checks the zero floor.
func TestTotalNonNegativeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in, opts := genInput(t)
		r, err := Calculate(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Total < 0 {
			t.Fatalf("negative total %d for %+v", r.Total, in)
		}
	})
}

// TestStatusChangeDeltaProperty checks that the status delta equals the
// difference of the two absolute values exactly.
func TestStatusChangeDeltaProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in, opts := genInput(t)
		from := rapid.SampledFrom(statuses).Draw(t, "from")
		to := rapid.SampledFrom(statuses).Draw(t, "to")

		delta, err := CalculateStatusChange(in, from, to, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		in.Status = from
		before, _ := Calculate(in, opts)
		in.Status = to
		after, _ := Calculate(in, opts)

		if delta != after.Total-before.Total {
			t.Fatalf("delta %d != %d - %d", delta, after.Total, before.Total)
		}
	})
}

// TestQualityChangeChainProperty checks that consecutive re-ratings add up to
// a single re-rating from the first to the last value.
func TestQualityChangeChainProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in, opts := genInput(t)
		in.QualityRating = nil
		r1 := rapid.IntRange(MinRating, MaxRating).Draw(t, "r1")
		r2 := rapid.IntRange(MinRating, MaxRating).Draw(t, "r2")
		r3 := rapid.IntRange(MinRating, MaxRating).Draw(t, "r3")

		d12, err := CalculateQualityChange(in, &r1, r2, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d23, _ := CalculateQualityChange(in, &r2, r3, opts)
		d13, _ := CalculateQualityChange(in, &r1, r3, opts)

		if d12+d23 != d13 {
			t.Fatalf("%d + %d != %d", d12, d23, d13)
		}
	})
}

// TestRejectedOnlyGeoProperty checks that a rejected contribution earns
// exactly its geographic bonuses.
func TestRejectedOnlyGeoProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in, opts := genInput(t)
		in.Status = model.StatusRejected

		r, err := Calculate(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Total != r.Breakdown.Geographic {
			t.Fatalf("rejected total %d, geo %d", r.Total, r.Breakdown.Geographic)
		}
	})
}
