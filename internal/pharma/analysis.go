package pharma

import (
	"context"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/router"
	"github.com/pharmaflow/pharmaflow/internal/ui"
)

// Perspectives of the analysis view, in tab order.
const (
	PerspectiveFinance        = "finance"
	PerspectiveSustainability = "sustainability"
	PerspectiveChemistry      = "chemistry"
)

var perspectiveTabs = []struct{ name, label string }{
	{PerspectiveFinance, "Finance"},
	{PerspectiveSustainability, "Sustainability"},
	{PerspectiveChemistry, "Chemistry/Process"},
}

// List limits of the analysis cards.
const (
	maxMilestones    = 5
	maxROI           = 3
	maxCompliance    = 3
	maxCriticalSteps = 4
)

func (d *Dashboard) analysis(ctx context.Context, documentID string, nav *router.Navigator) *ui.AnalysisView {
	a, err := d.api.GetAnalysis(ctx, documentID)
	if err != nil {
		d.logger.Error("fetching analysis", zap.String("document", documentID), zap.Error(err))
		return &ui.AnalysisView{Failed: true}
	}

	current := nav.State().Get("perspective")
	switch current {
	case PerspectiveSustainability, PerspectiveChemistry:
	default:
		current = PerspectiveFinance
	}

	view := AnalysisView(a)
	view.Perspective = current
	for _, p := range perspectiveTabs {
		view.Tabs = append(view.Tabs, ui.TabLink{
			Name:   p.name,
			Label:  p.label,
			Href:   nav.Link("perspective", p.name),
			Active: p.name == current,
		})
	}
	return view
}

// AnalysisView selects the displayable parts of each perspective. Values
// equal to "Not specified" are left out and lists are truncated to what the
// cards show.
func AnalysisView(a *pharmaapi.Analysis) *ui.AnalysisView {
	fin, sus, chem := a.Finance, a.Sustainability, a.Chemistry
	return &ui.AnalysisView{
		Finance: ui.FinanceView{
			TotalCost:  fin.Text("total_cost"),
			Breakdown:  kvs(fin.Fields("cost_breakdown")),
			Milestones: fin.List("milestones", maxMilestones),
			Summary:    fin.Text("summary"),
			ROI:        fin.List("roi_considerations", maxROI),
		},
		Sustainability: ui.SustainabilityView{
			WasteRecovery: kvs(sus.Fields("waste_recovery")),
			Emissions:     kvs(sus.Fields("emissions")),
			Summary:       sus.Text("summary"),
			Compliance:    sus.List("compliance", maxCompliance),
		},
		Chemistry: ui.ChemistryView{
			ActiveIngredients: chem.Sub("formulation").List("active_ingredients", 0),
			ProcessParameters: kvs(chem.Fields("process_parameters")),
			QualitySpecs:      kvs(chem.Fields("quality_specs")),
			Summary:           chem.Text("summary"),
			CriticalSteps:     chem.List("critical_steps", maxCriticalSteps),
		},
	}
}

func kvs(fields []pharmaapi.Field) []ui.KV {
	out := make([]ui.KV, len(fields))
	for i, f := range fields {
		out[i] = ui.KV{Key: f.Key, Value: f.Value}
	}
	return out
}
