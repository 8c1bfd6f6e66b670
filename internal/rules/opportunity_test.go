package rules_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"crm/internal/domain"
	"crm/internal/rules"
	"crm/models"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestValidateStageTransitionAllPairs(t *testing.T) {
	stages := models.Stages()
	for _, from := range stages {
		for _, to := range stages {
			res := rules.ValidateStageTransition(from, to)
			switch {
			case from == to:
				require.True(t, res.IsValid, "%s -> %s", from, to)
			case rules.IsClosedStage(from):
				require.False(t, res.IsValid, "%s -> %s", from, to)
				require.Nil(t, res.SuggestedStage)
			case contains(rules.NextStages(from), to):
				require.True(t, res.IsValid, "%s -> %s", from, to)
				require.Empty(t, res.Reason)
			case rules.StageIndex(to) < rules.StageIndex(from):
				require.True(t, res.IsValid, "%s -> %s", from, to)
				require.Equal(t, rules.RegressionReason, res.Reason)
			default:
				require.False(t, res.IsValid, "%s -> %s", from, to)
				require.NotNil(t, res.SuggestedStage)
				require.Contains(t, rules.NextStages(from), *res.SuggestedStage)
			}
		}
	}
}

func TestValidateStageTransitionExamples(t *testing.T) {
	tests := []struct {
		name  string
		from  models.Stage
		to    models.Stage
		valid bool
	}{
		{"forward one step", models.StageNewLead, models.StageInitialOutreach, true},
		{"skip forward", models.StageNewLead, models.StageDemoScheduled, false},
		{"lost from first stage", models.StageNewLead, models.StageClosedLost, true},
		{"won too early", models.StageAwaitingResponse, models.StageClosedWon, false},
		{"won after feedback", models.StageFeedbackLogged, models.StageClosedWon, true},
		{"won after demo", models.StageDemoScheduled, models.StageClosedWon, true},
		{"regression", models.StageDemoScheduled, models.StageNewLead, true},
		{"reopen won", models.StageClosedWon, models.StageDemoScheduled, false},
		{"won to lost", models.StageClosedWon, models.StageClosedLost, false},
		{"lost to new lead", models.StageClosedLost, models.StageNewLead, false},
		{"unknown stage", models.Stage("Negotiation"), models.StageNewLead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, rules.ValidateStageTransition(tt.from, tt.to).IsValid)
		})
	}

	res := rules.ValidateStageTransition(models.StageNewLead, models.StageDemoScheduled)
	require.Equal(t, "Cannot transition from New Lead to Demo Scheduled", res.Reason)
	require.Equal(t, models.StageInitialOutreach, *res.SuggestedStage)
}

func TestStageClassification(t *testing.T) {
	require.True(t, rules.IsWonStage(models.StageClosedWon))
	require.True(t, rules.IsLostStage(models.StageClosedLost))
	require.True(t, rules.IsClosedStage(models.StageClosedLost))
	require.False(t, rules.IsActiveStage(models.StageClosedWon))
	require.True(t, rules.IsActiveStage(models.StageFeedbackLogged))
	require.False(t, rules.IsActiveStage(models.Stage("bogus")))
	require.Equal(t, -1, rules.StageIndex(models.Stage("bogus")))
}

func violationCode(t *testing.T, err error) domain.ViolationCode {
	t.Helper()
	require.Error(t, err)
	v, ok := domain.AsViolation(err)
	require.True(t, ok, "expected BusinessRuleViolation, got %v", err)
	return v.Code
}

func TestValidateOpportunityDataOrder(t *testing.T) {
	valid := func() models.OpportunityInput {
		return models.OpportunityInput{Name: ptr("Acme - Site Visit"), OrganizationID: ptr("org1")}
	}

	require.NoError(t, rules.ValidateOpportunityData(valid(), now))

	in := valid()
	in.Name = ptr("   ")
	require.Equal(t, domain.CodeRequiredName, violationCode(t, rules.ValidateOpportunityData(in, now)))

	// имя проверяется раньше организации
	require.Equal(t, domain.CodeRequiredName, violationCode(t, rules.ValidateOpportunityData(models.OpportunityInput{}, now)))

	in = valid()
	in.OrganizationID = ptr("")
	require.Equal(t, domain.CodeRequiredOrganization, violationCode(t, rules.ValidateOpportunityData(in, now)))

	// значение проверяется раньше длины имени
	in = valid()
	in.Name = ptr(strings.Repeat("x", 300))
	in.EstimatedValue = ptr(-5.0)
	require.Equal(t, domain.CodeInvalidValue, violationCode(t, rules.ValidateOpportunityData(in, now)))
}

func TestValidateOpportunityDataValueBoundaries(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN(), -1} {
		in := models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), EstimatedValue: ptr(v)}
		require.Equal(t, domain.CodeInvalidValue, violationCode(t, rules.ValidateOpportunityData(in, now)), "value %v", v)
	}
	in := models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), EstimatedValue: ptr(0.0)}
	require.NoError(t, rules.ValidateOpportunityData(in, now))
}

func TestValidateOpportunityDataNameLength(t *testing.T) {
	in := models.OpportunityInput{Name: ptr(strings.Repeat("a", 255)), OrganizationID: ptr("org1")}
	require.NoError(t, rules.ValidateOpportunityData(in, now))

	in.Name = ptr(strings.Repeat("a", 256))
	require.Equal(t, domain.CodeNameTooLong, violationCode(t, rules.ValidateOpportunityData(in, now)))

	// длина считается в символах, а не в байтах: 255 эмодзи проходят
	in.Name = ptr(strings.Repeat("🍅", 255))
	require.NoError(t, rules.ValidateOpportunityData(in, now))
	in.Name = ptr(strings.Repeat("é", 256))
	require.Equal(t, domain.CodeNameTooLong, violationCode(t, rules.ValidateOpportunityData(in, now)))
}

func TestValidateOpportunityDataCloseDate(t *testing.T) {
	past := now.AddDate(0, 0, -1)
	base := models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), CloseDate: &past}

	// без этапа дата не проверяется
	require.NoError(t, rules.ValidateOpportunityData(base, now))

	active := base
	active.Stage = ptr(models.StageAwaitingResponse)
	require.Equal(t, domain.CodeInvalidCloseDate, violationCode(t, rules.ValidateOpportunityData(active, now)))

	closed := base
	closed.Stage = ptr(models.StageClosedWon)
	require.NoError(t, rules.ValidateOpportunityData(closed, now))

	future := now.AddDate(0, 1, 0)
	active.CloseDate = &future
	require.NoError(t, rules.ValidateOpportunityData(active, now))
}

func TestValidateOpportunityDataEnums(t *testing.T) {
	in := models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), Stage: ptr(models.Stage("Won"))}
	require.Equal(t, domain.CodeInvalidStage, violationCode(t, rules.ValidateOpportunityData(in, now)))

	in = models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), Status: ptr(models.Status("Done"))}
	require.Equal(t, domain.CodeInvalidStatus, violationCode(t, rules.ValidateOpportunityData(in, now)))

	in = models.OpportunityInput{Name: ptr("n"), OrganizationID: ptr("org1"), Context: ptr(models.OpportunityContext("Cold Call"))}
	require.Equal(t, domain.CodeInvalidContext, violationCode(t, rules.ValidateOpportunityData(in, now)))
}

func TestValidateStatusTransition(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		next    models.Status
		stage   models.Stage
		want    bool
	}{
		{"active to on hold", models.StatusActive, models.StatusOnHold, models.StageNewLead, true},
		{"on hold to qualified", models.StatusOnHold, models.StatusQualified, models.StageFeedbackLogged, true},
		{"close won while active", models.StatusActive, models.StatusClosedWon, models.StageDemoScheduled, false},
		{"close lost while active", models.StatusActive, models.StatusClosedLost, models.StageNewLead, false},
		{"close won on won stage", models.StatusActive, models.StatusClosedWon, models.StageClosedWon, true},
		{"drift from closed stage", models.StatusClosedWon, models.StatusActive, models.StageClosedWon, false},
		{"mismatched closed status", models.StatusClosedLost, models.StatusClosedWon, models.StageClosedLost, false},
		{"unknown status", models.StatusActive, models.Status("Paused"), models.StageNewLead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rules.ValidateStatusTransition(tt.current, tt.next, tt.stage))
		})
	}
}

func TestSyncStatusWithStage(t *testing.T) {
	require.Equal(t, models.StatusClosedWon, rules.SyncStatusWithStage(models.StageClosedWon, models.StatusOnHold))
	require.Equal(t, models.StatusClosedLost, rules.SyncStatusWithStage(models.StageClosedLost, models.StatusActive))
	require.Equal(t, models.StatusNurturing, rules.SyncStatusWithStage(models.StageAwaitingResponse, models.StatusNurturing))
}

func TestGenerateOpportunityName(t *testing.T) {
	p := rules.NameParams{OrganizationName: "Acme"}
	require.Equal(t, "Acme", rules.GenerateOpportunityName(p))

	p.Context = models.ContextSiteVisit
	require.Equal(t, "Acme - Site Visit", rules.GenerateOpportunityName(p))

	p.PrincipalName = "Kikkoman"
	require.Equal(t, "Acme - Site Visit (Kikkoman)", rules.GenerateOpportunityName(p))

	p.ExistingOpportunityCount = 2
	require.Equal(t, "Acme - Site Visit (Kikkoman) #3", rules.GenerateOpportunityName(p))

	custom := rules.NameParams{OrganizationName: "Acme", Context: models.ContextCustom, ExistingOpportunityCount: 0}
	require.Equal(t, "Acme", rules.GenerateOpportunityName(custom))
	require.NotContains(t, rules.GenerateOpportunityName(rules.NameParams{OrganizationName: "Acme", Context: models.ContextCustom, PrincipalName: "P"}), "Custom")
}

func opp(stage models.Stage, value float64) models.Opportunity {
	return models.Opportunity{Stage: stage, EstimatedValue: value}
}

func TestCalculateWinRate(t *testing.T) {
	require.Zero(t, rules.CalculateWinRate(nil))
	require.Zero(t, rules.CalculateWinRate([]models.Opportunity{opp(models.StageNewLead, 10)}))
	require.Equal(t, 100.0, rules.CalculateWinRate([]models.Opportunity{opp(models.StageClosedWon, 1), opp(models.StageClosedWon, 2)}))

	mixed := []models.Opportunity{
		opp(models.StageClosedWon, 1),
		opp(models.StageClosedWon, 1),
		opp(models.StageClosedLost, 1),
		opp(models.StageDemoScheduled, 1),
	}
	require.InDelta(t, 66.67, rules.CalculateWinRate(mixed), 0.01)
}

func TestCalculateAverageDealSize(t *testing.T) {
	require.Zero(t, rules.CalculateAverageDealSize(nil))
	list := []models.Opportunity{opp(models.StageNewLead, 100), opp(models.StageClosedWon, 250), opp(models.StageClosedLost, 50)}
	require.InDelta(t, (100.0+250+50)/3, rules.CalculateAverageDealSize(list), 1e-9)
}

func TestCalculateWeightedPipeline(t *testing.T) {
	list := []models.Opportunity{
		opp(models.StageNewLead, 1000),      // 100
		opp(models.StageDemoScheduled, 100), // 70
		opp(models.StageClosedWon, 5000),    // закрытые не учитываются
	}
	require.InDelta(t, 170.0, rules.CalculateWeightedPipeline(list), 1e-9)
}

func contains(list []models.Stage, s models.Stage) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
