package stats

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/nutrirec/nutrirec/internal/platform/auth"
)

// MeasureDefinition defines a clinic measure with its SQL query. Parameters
// are bound positionally, in declaration order.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// paramDefaults supplies the value for a declared parameter the caller
// omitted. Every parameter any measure declares must have a default.
var paramDefaults = map[string]string{
	"days":        "30",
	"window_days": "7",
}

// PredefinedMeasures is the list of available clinic measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "client-count",
		Name:        "Client Count",
		Description: "Total registered clients and how many are active",
		SQL:         `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN deleted_at IS NULL THEN 1 ELSE 0 END), 0) AS active FROM clients`,
		Parameters:  []string{},
	},
	{
		ID:          "clients-by-goal",
		Name:        "Clients by Goal",
		Description: "Active clients grouped by treatment goal",
		SQL:         `SELECT goal, COUNT(*) AS total FROM clients WHERE deleted_at IS NULL GROUP BY goal ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "measurement-volume",
		Name:        "Measurement Volume",
		Description: "Measurements taken and distinct clients measured over the window",
		SQL:         `SELECT COUNT(*) AS total, COUNT(DISTINCT client_id) AS clients_measured FROM measurements WHERE taken_at >= NOW() - ($1::int * INTERVAL '1 day')`,
		Parameters:  []string{"days"},
	},
	{
		ID:          "plan-compliance",
		Name:        "Plan Compliance",
		Description: "Scored meal plans and how many met the followed threshold",
		SQL: `SELECT COUNT(*) AS scored,
       COALESCE(SUM(CASE WHEN compliance_score >= 7 THEN 1 ELSE 0 END), 0) AS followed,
       COALESCE(ROUND(100.0 * SUM(CASE WHEN compliance_score >= 7 THEN 1 ELSE 0 END) / NULLIF(COUNT(*), 0), 1), 0) AS percent
  FROM meal_plans WHERE compliance_score IS NOT NULL`,
		Parameters: []string{},
	},
	{
		ID:          "registrations-by-month",
		Name:        "Registrations by Month",
		Description: "New client registrations per month, most recent twelve",
		SQL:         `SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS total FROM clients GROUP BY 1 ORDER BY 1 DESC LIMIT 12`,
		Parameters:  []string{},
	},
	{
		ID:          "clients-by-sex",
		Name:        "Clients by Sex",
		Description: "Active clients grouped by sex",
		SQL:         `SELECT sex, COUNT(*) AS total FROM clients WHERE deleted_at IS NULL GROUP BY sex ORDER BY sex`,
		Parameters:  []string{},
	},
	{
		ID:          "clients-by-age-band",
		Name:        "Clients by Age Band",
		Description: "Active clients grouped into age bands",
		SQL: `SELECT CASE WHEN age < 18 THEN 'under_18'
            WHEN age < 30 THEN '18_29'
            WHEN age < 45 THEN '30_44'
            WHEN age < 60 THEN '45_59'
            ELSE '60_plus' END AS age_band,
       COUNT(*) AS total
  FROM clients WHERE deleted_at IS NULL GROUP BY 1 ORDER BY 1`,
		Parameters: []string{},
	},
	{
		ID:          "bmi-by-category",
		Name:        "BMI by Category",
		Description: "Latest BMI per active client grouped into the standard bands",
		SQL: `WITH latest AS (
    SELECT DISTINCT ON (client_id) client_id, bmi
      FROM measurements ORDER BY client_id, taken_at DESC
)
SELECT CASE WHEN l.bmi < 18.5 THEN 'underweight'
            WHEN l.bmi < 25.0 THEN 'normal'
            WHEN l.bmi < 30.0 THEN 'overweight'
            ELSE 'obese' END AS category,
       COUNT(*) AS total,
       ROUND(AVG(l.bmi)::numeric, 1) AS average_bmi
  FROM latest l
  JOIN clients c ON c.id = l.client_id AND c.deleted_at IS NULL
 WHERE l.bmi IS NOT NULL
 GROUP BY 1 ORDER BY 1`,
		Parameters: []string{},
	},
	{
		ID:          "followups-due",
		Name:        "Follow-Ups Due",
		Description: "Clients overdue or due within the window, anchored on the latest measurement",
		SQL: `WITH latest AS (
    SELECT DISTINCT ON (client_id) client_id, taken_at
      FROM measurements ORDER BY client_id, taken_at DESC
)
SELECT COUNT(*) FILTER (WHERE due_date < CURRENT_DATE) AS overdue,
       COUNT(*) FILTER (WHERE due_date >= CURRENT_DATE AND due_date <= CURRENT_DATE + $1::int) AS due_soon
  FROM (
    SELECT COALESCE(l.taken_at::date, c.created_at::date) + c.cadence_days AS due_date
      FROM clients c
      LEFT JOIN latest l ON l.client_id = c.id
     WHERE c.deleted_at IS NULL
  ) d`,
		Parameters: []string{"window_days"},
	},
}

// Handler provides HTTP handlers for the clinic stats API.
type Handler struct {
	pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the stats API routes. Stats expose clinic-wide
// aggregates, so assistants are excluded.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/stats", auth.RequireRole(auth.RoleAdmin, auth.RoleDietitian))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	args := make([]interface{}, 0, len(measure.Parameters))
	for _, p := range measure.Parameters {
		v := c.QueryParam(p)
		if v == "" {
			v = paramDefaults[p]
		}
		params[p] = v
		args = append(args, v)
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	})
}

// executeSQL runs a query and returns the rows as a slice of column maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
