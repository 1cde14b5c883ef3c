package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *Plan {
	return &Plan{
		Title: "Container Orchestration Basics",
		Kind:  "explainer",
		Sections: []SectionSpec{
			{ID: 1, Title: "Why Orchestration", Goal: "Motivate the problem", TargetWords: 250},
			{ID: 2, Title: "Schedulers", Goal: "Explain scheduling", TargetWords: 400},
			{ID: 3, Title: "Networking", Goal: "Explain service discovery", TargetWords: 350},
		},
	}
}

// TestValidateSection covers the title and word-count rules.
func TestValidateSection(t *testing.T) {
	tests := []struct {
		name       string
		spec       SectionSpec
		violations int
	}{
		{"valid", SectionSpec{ID: 1, Title: "Intro", TargetWords: 200}, 0},
		{"empty title", SectionSpec{ID: 1, Title: "  ", TargetWords: 200}, 1},
		{"zero words", SectionSpec{ID: 1, Title: "Intro", TargetWords: 0}, 1},
		{"negative words", SectionSpec{ID: 1, Title: "Intro", TargetWords: -5}, 1},
		{"both invalid", SectionSpec{ID: 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ValidateSection(tt.spec), tt.violations)
		})
	}
}

// TestValidatePlan checks outline-level rules.
func TestValidatePlan(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		assert.Empty(t, ValidatePlan(testPlan()))
	})

	t.Run("nil plan", func(t *testing.T) {
		assert.Len(t, ValidatePlan(nil), 1)
	})

	t.Run("empty title", func(t *testing.T) {
		p := testPlan()
		p.Title = ""
		v := ValidatePlan(p)
		require.Len(t, v, 1)
		assert.Equal(t, "title", v[0].Field)
	})

	t.Run("no sections", func(t *testing.T) {
		p := testPlan()
		p.Sections = nil
		assert.NotEmpty(t, ValidatePlan(p))
	})

	t.Run("duplicate section ids", func(t *testing.T) {
		p := testPlan()
		p.Sections[2].ID = 1
		v := ValidatePlan(p)
		require.Len(t, v, 1)
		assert.Contains(t, v[0].Message, "duplicate")
	})

	t.Run("section violations carry index", func(t *testing.T) {
		p := testPlan()
		p.Sections[1].Title = ""
		v := ValidatePlan(p)
		require.Len(t, v, 1)
		assert.Equal(t, "sections[1].title", v[0].Field)
	})
}

// TestValidateImageSpec checks prompt and anchor rules.
func TestValidateImageSpec(t *testing.T) {
	plan := testPlan()

	t.Run("valid", func(t *testing.T) {
		spec := ImageSpec{ID: "image_1", SectionID: 2, Prompt: "diagram of a scheduler"}
		assert.Empty(t, ValidateImageSpec(spec, plan))
	})

	t.Run("empty prompt", func(t *testing.T) {
		spec := ImageSpec{ID: "image_1", SectionID: 2}
		v := ValidateImageSpec(spec, plan)
		require.Len(t, v, 1)
		assert.Equal(t, "prompt", v[0].Field)
	})

	t.Run("dangling anchor", func(t *testing.T) {
		spec := ImageSpec{ID: "image_1", SectionID: 99, Prompt: "diagram"}
		v := ValidateImageSpec(spec, plan)
		require.Len(t, v, 1)
		assert.Equal(t, "section_id", v[0].Field)
	})
}

// TestValidateImagePlan_Cardinality exercises the [2,3] bound against
// pathological plan sizes.
func TestValidateImagePlan_Cardinality(t *testing.T) {
	plan := testPlan()
	spec := func(n int) ImageSpec {
		return ImageSpec{ID: ImageID(n), SectionID: 1, Prompt: "diagram"}
	}

	tests := []struct {
		name  string
		count int
		ok    bool
	}{
		{"zero images", 0, false},
		{"one image", 1, false},
		{"two images", 2, true},
		{"three images", 3, true},
		{"five images", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := make([]ImageSpec, 0, tt.count)
			for i := 1; i <= tt.count; i++ {
				specs = append(specs, spec(i))
			}
			violations := ValidateImagePlan(specs, plan)
			if tt.ok {
				assert.Empty(t, violations)
			} else {
				assert.NotEmpty(t, violations)
			}
		})
	}
}

// TestFallbackImagePlan verifies the deterministic minimum plan.
func TestFallbackImagePlan(t *testing.T) {
	plan := testPlan()

	specs := FallbackImagePlan(plan)
	require.Len(t, specs, MinImages)

	// Always valid against the plan it was built from.
	assert.Empty(t, ValidateImagePlan(specs, plan))

	// Anchored to real sections.
	for _, s := range specs {
		assert.True(t, plan.HasSection(s.SectionID))
		assert.NotEmpty(t, s.Prompt)
		assert.NotEmpty(t, s.Caption)
	}

	// Deterministic across calls.
	assert.Equal(t, specs, FallbackImagePlan(plan))

	// Degenerate input.
	assert.Nil(t, FallbackImagePlan(nil))
	assert.Nil(t, FallbackImagePlan(&Plan{Title: "x"}))
}

// TestAsError verifies the violation-to-error bridge.
func TestAsError(t *testing.T) {
	assert.NoError(t, AsError(nil))

	err := AsError([]Violation{{Field: "title", Message: "must not be empty"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title: must not be empty")
}
