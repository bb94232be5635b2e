package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/vinaykashyap1996/circonomit-sim/internal/engine"
	"github.com/vinaykashyap1996/circonomit-sim/internal/model"
	"github.com/vinaykashyap1996/circonomit-sim/internal/report"
	"github.com/vinaykashyap1996/circonomit-sim/internal/scenario"
)

type apiAttribute struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Baseline *float64 `json:"baseline,omitempty"` // inputs only
}

type apiBlock struct {
	Name       string         `json:"name"`
	Attributes []apiAttribute `json:"attributes"`
}

type apiScenario struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	Overrides   map[string]map[string]float64 `json:"overrides,omitempty"`
}

type simulateRequest struct {
	Scenario  string                        `json:"scenario"`
	Overrides map[string]map[string]float64 `json:"overrides"`

	// Pointers so an explicit zero is distinguishable from an absent
	// field; absent falls back to the defaults.
	MaxIterations *int     `json:"max_iterations"`
	Threshold     *float64 `json:"threshold"`
}

type compareRequest struct {
	Scenarios     []string                      `json:"scenarios"`
	Overrides     map[string]map[string]float64 `json:"overrides"`
	MaxIterations *int                          `json:"max_iterations"`
	Threshold     *float64                      `json:"threshold"`
}

// ValueRow is one attribute value in a run result.
type ValueRow struct {
	Attribute string   `json:"attribute"`
	Label     string   `json:"label"`
	Value     *float64 `json:"value"` // null when the run produced no finite value
}

// RunResult is the wire shape of one simulation run. The CLI emits the same
// shape with --json, so scripts can consume either front end.
type RunResult struct {
	RunID      string         `json:"run_id"`
	Scenario   string         `json:"scenario"`
	Status     engine.Status  `json:"status"`
	Iterations int            `json:"iterations"`
	MaxDelta   *float64       `json:"max_delta"`
	ElapsedMS  float64        `json:"elapsed_ms"`
	Rows       []ValueRow     `json:"rows"`
	Context    map[string]any `json:"context"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	blocks := make([]apiBlock, 0, len(s.Model.Blocks()))
	for _, blk := range s.Model.Blocks() {
		names := s.Model.AttributeNames(blk)
		attrs := make([]apiAttribute, 0, len(names))
		for _, name := range names {
			a, ok := s.Model.Attribute(name)
			if !ok {
				continue
			}
			entry := apiAttribute{Name: a.Name, Label: a.Label, Kind: a.Kind.String()}
			if a.Kind == model.KindInput {
				baseline := a.Baseline
				entry.Baseline = &baseline
			}
			attrs = append(attrs, entry)
		}
		blocks = append(blocks, apiBlock{Name: string(blk), Attributes: attrs})
	}

	writeJSON(w, map[string]any{"blocks": blocks})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cat, err := s.catalog()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	list := make([]apiScenario, 0, len(cat.Names()))
	for _, sc := range cat.Scenarios() {
		list = append(list, apiScenario{
			Name:        sc.Name,
			Description: sc.Description,
			Overrides:   fromOverrides(sc.Overrides),
		})
	}
	writeJSON(w, map[string]any{"scenarios": list})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	solver, err := s.solver()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := solver.Simulate(params(req.Scenario, req.Overrides, req.MaxIterations, req.Threshold))
	if err != nil {
		// Simulate fails only on caller mistakes: bad tuning values or
		// overrides the model rejects.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, NewRunResult(s.Model, out))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Scenarios) == 0 {
		http.Error(w, "no scenarios given", http.StatusBadRequest)
		return
	}

	solver, err := s.solver()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	outs, err := solver.Compare(req.Scenarios, params("", req.Overrides, req.MaxIterations, req.Threshold))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := make([]RunResult, len(outs))
	for i, out := range outs {
		results[i] = NewRunResult(s.Model, out)
	}
	writeJSON(w, map[string]any{"results": results})
}

// handleScenarioItem covers PUT and DELETE on /api/v1/scenarios/{name}.
func (s *Server) handleScenarioItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/scenarios/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.putScenario(w, r, name)
	case http.MethodDelete:
		s.deleteScenario(w, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) putScenario(w http.ResponseWriter, r *http.Request, name string) {
	if s.Store == nil {
		http.Error(w, "scenario store not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Description string                        `json:"description"`
		Overrides   map[string]map[string]float64 `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	sc := &scenario.Scenario{
		Name:        name,
		Description: req.Description,
		Overrides:   toOverrides(req.Overrides),
	}

	// Validate eagerly against the model: a stored scenario that can
	// never resolve helps nobody.
	probe := scenario.NewCatalog()
	if err := probe.Put(sc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := scenario.Resolve(s.Model, probe, name, nil); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Store.SaveScenario(sc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, apiScenario{Name: sc.Name, Description: sc.Description, Overrides: fromOverrides(sc.Overrides)})
}

func (s *Server) deleteScenario(w http.ResponseWriter, name string) {
	if s.Store == nil {
		http.Error(w, "scenario store not configured", http.StatusServiceUnavailable)
		return
	}

	found, err := s.Store.DeleteScenario(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no such stored scenario", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"deleted": name})
}

// NewRunResult flattens an outcome into the wire shape. JSON has no NaN or
// infinity, so non-finite values encode as null.
func NewRunResult(m *model.Model, out *engine.Outcome) RunResult {
	rows := report.ModelRows(m, out.Context)
	valueRows := make([]ValueRow, len(rows))
	for i, row := range rows {
		valueRows[i] = ValueRow{Attribute: row.Attribute, Label: row.Label, Value: jsonNumber(row.Value)}
	}

	ctx := make(map[string]any, len(out.Context))
	for k, v := range out.Context {
		if p := jsonNumber(v); p != nil {
			ctx[k] = *p
		} else {
			ctx[k] = nil
		}
	}

	return RunResult{
		RunID:      out.RunID,
		Scenario:   out.Scenario,
		Status:     out.Status,
		Iterations: out.Iterations,
		MaxDelta:   jsonNumber(out.MaxDelta),
		ElapsedMS:  float64(out.Elapsed) / float64(time.Millisecond),
		Rows:       valueRows,
		Context:    ctx,
	}
}

func params(name string, ov map[string]map[string]float64, maxIter *int, threshold *float64) engine.Params {
	p := engine.DefaultParams()
	p.Scenario = name
	p.Overrides = toOverrides(ov)
	if maxIter != nil {
		p.MaxIterations = *maxIter
	}
	if threshold != nil {
		p.Threshold = *threshold
	}
	return p
}

func toOverrides(m map[string]map[string]float64) scenario.Overrides {
	if len(m) == 0 {
		return nil
	}
	out := make(scenario.Overrides, len(m))
	for blk, attrs := range m {
		vals := make(map[string]float64, len(attrs))
		for k, v := range attrs {
			vals[k] = v
		}
		out[model.BlockName(blk)] = vals
	}
	return out
}

func fromOverrides(ov scenario.Overrides) map[string]map[string]float64 {
	if len(ov) == 0 {
		return nil
	}
	out := make(map[string]map[string]float64, len(ov))
	for blk, attrs := range ov {
		vals := make(map[string]float64, len(attrs))
		for k, v := range attrs {
			vals[k] = v
		}
		out[string(blk)] = vals
	}
	return out
}

func jsonNumber(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
