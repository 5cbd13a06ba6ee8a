package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TripQuery — параметры поездки.
type TripQuery struct {
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Budget        string `json:"budget,omitempty"`
	Preferences   string `json:"preferences,omitempty"`
	Activities    string `json:"activities,omitempty"`
}

// StageResponse — состояние шага.
type StageResponse struct {
	Stage     string `json:"stage"`
	State     string `json:"state"`
	Count     int    `json:"count,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// PlanResponse — план из API.
type PlanResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Query        TripQuery       `json:"query"`
	Status       string          `json:"status"`
	CurrentStage string          `json:"current_stage"`
	Finalized    bool            `json:"finalized"`
	Stages       []StageResponse `json:"stages"`
	Itinerary    map[string]any  `json:"itinerary"`
	Error        string          `json:"error,omitempty"`
	RequestedAt  string          `json:"requested_at,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

// EventResponse — уведомление о шаге.
type EventResponse struct {
	Kind        string `json:"kind"`
	Stage       string `json:"stage"`
	Count       int    `json:"count,omitempty"`
	Failure     string `json:"failure,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// HaltResponse — причина остановки шага.
type HaltResponse struct {
	Kind   string   `json:"kind"`
	Stage  string   `json:"stage"`
	Fields []string `json:"fields,omitempty"`
}

// AdvanceResponse — результат выполнения шага.
type AdvanceResponse struct {
	Outcome string          `json:"outcome"`
	Plan    PlanResponse    `json:"plan"`
	Events  []EventResponse `json:"events"`
	Halt    *HaltResponse   `json:"halt,omitempty"`
}

// --- Request types ---

// TripQueryRequest — параметры поездки в запросе.
type TripQueryRequest struct {
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	Budget        string `json:"budget,omitempty"`
	Preferences   string `json:"preferences,omitempty"`
}

// CreatePlanRequest — создание плана.
type CreatePlanRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Query       TripQueryRequest `json:"query"`
}

// UpdatePlanRequest — обновление плана.
type UpdatePlanRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Query       *TripQueryRequest `json:"query,omitempty"`
}

// ListPlansOpts — параметры фильтрации планов.
type ListPlansOpts struct {
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Itinera API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			// advance ждёт удалённый вызов шага
			Timeout: 2 * time.Minute,
		},
	}
}

// --- Plans ---

// ListPlans возвращает планы пользователя.
func (c *Client) ListPlans(opts ListPlansOpts) ([]PlanResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var plans []PlanResponse
	err := c.list("/api/v1/plans", params, &plans)
	return plans, err
}

// CreatePlan создаёт план.
func (c *Client) CreatePlan(req CreatePlanRequest) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.post("/api/v1/plans", req, &plan)
	return &plan, err
}

// GetPlan возвращает план по ID.
func (c *Client) GetPlan(id string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.get("/api/v1/plans/"+id, &plan)
	return &plan, err
}

// UpdatePlan обновляет план.
func (c *Client) UpdatePlan(id string, req UpdatePlanRequest) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.put("/api/v1/plans/"+id, req, &plan)
	return &plan, err
}

// DeletePlan удаляет план.
func (c *Client) DeletePlan(id string) error {
	return c.delete("/api/v1/plans/" + id)
}

// AdvancePlan выполняет текущий шаг плана.
func (c *Client) AdvancePlan(id string) (*AdvanceResponse, error) {
	var resp AdvanceResponse
	err := c.post("/api/v1/plans/"+id+"/advance", nil, &resp)
	return &resp, err
}

// RunPlan запрашивает фоновую сборку плана.
func (c *Client) RunPlan(id string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.post("/api/v1/plans/"+id+"/run", nil, &plan)
	return &plan, err
}

// AbandonPlan прекращает сборку плана.
func (c *Client) AbandonPlan(id, reason string) (*PlanResponse, error) {
	var body any
	if reason != "" {
		body = map[string]string{"reason": reason}
	}

	var plan PlanResponse
	err := c.post("/api/v1/plans/"+id+"/abandon", body, &plan)
	return &plan, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
