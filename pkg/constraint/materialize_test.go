package constraint

import (
	"testing"

	"github.com/jhmac/elon/pkg/safety"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_RoutesSensitiveStepToPending(t *testing.T) {
	c := &Constraint{ID: "c1", Category: "backend", Steps: []PlanStep{
		{Step: 1, FilePath: "src/auth.ts", Description: "harden the auth database credentials check"},
	}}
	specs := Materialize(c, MaterializeOptions{AutoApproveCategory: map[string]bool{"backend": true}})
	require.Len(t, specs, 1)
	assert.Equal(t, "pending", specs[0].Bucket)
	assert.Equal(t, "auth", specs[0].Spec.BlockedCategory)
}

func TestMaterialize_RoutesSafeNonSensitiveStepToApproved(t *testing.T) {
	kernel := safety.NewKernel(safety.Policy{SafePaths: []string{"src/**"}}, safety.DefaultCommandPolicy(), nil)
	c := &Constraint{ID: "c2", Category: "ui", Steps: []PlanStep{
		{Step: 1, FilePath: "src/button.ts", Description: "fix button alignment"},
	}}
	specs := Materialize(c, MaterializeOptions{Kernel: kernel, AutoApproveCategory: map[string]bool{"ui": true}})
	require.Len(t, specs, 1)
	assert.Equal(t, "approved", specs[0].Bucket)
}

func TestMaterialize_RoutesUnapprovedCategoryToPending(t *testing.T) {
	kernel := safety.NewKernel(safety.Policy{SafePaths: []string{"src/**"}}, safety.DefaultCommandPolicy(), nil)
	c := &Constraint{ID: "c3", Category: "ui", Steps: []PlanStep{
		{Step: 1, FilePath: "src/button.ts", Description: "fix button alignment"},
	}}
	specs := Materialize(c, MaterializeOptions{Kernel: kernel, AutoApproveCategory: map[string]bool{"backend": true}})
	require.Len(t, specs, 1)
	assert.Equal(t, "pending", specs[0].Bucket)
}

func TestMaterialize_UnlockedSensitiveCategoryCanStillRouteApproved(t *testing.T) {
	kernel := safety.NewKernel(safety.Policy{SafePaths: []string{"src/**"}}, safety.DefaultCommandPolicy(), nil)
	c := &Constraint{ID: "c4", Category: "backend", Steps: []PlanStep{
		{Step: 1, FilePath: "src/auth.ts", Description: "rotate auth credentials"},
	}}
	specs := Materialize(c, MaterializeOptions{
		Kernel:              kernel,
		AutoApproveCategory: map[string]bool{"backend": true},
		UnlockedCategories:  map[string]bool{"auth": true},
	})
	require.Len(t, specs, 1)
	assert.Equal(t, "approved", specs[0].Bucket)
}

func TestMaterialize_GeneratesStableStepIDs(t *testing.T) {
	c := &Constraint{ID: "c5", Steps: []PlanStep{{Step: 1}, {Step: 2}}}
	specs := Materialize(c, MaterializeOptions{})
	require.Len(t, specs, 2)
	assert.Equal(t, "elon-c5-step01", specs[0].Spec.ID)
	assert.Equal(t, "elon-c5-step02", specs[1].Spec.ID)
}
