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

// StageDTO — стадия definition из API.
type StageDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Ordinal      int      `json:"ordinal"`
	IsStart      bool     `json:"is_start"`
	IsTerminal   bool     `json:"is_terminal"`
	Checklist    []string `json:"checklist,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
}

// TransitionDTO — переход definition из API. Теги повторяют проводной
// формат domain.Transition: конечные точки сериализуются как from/to.
type TransitionDTO struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
	Priority  int    `json:"priority"`
}

// DefinitionResponse — definition из API.
type DefinitionResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Version     int             `json:"version"`
	Stages      []StageDTO      `json:"stages"`
	Transitions []TransitionDTO `json:"transitions"`
	CreatedAt   string          `json:"created_at"`
}

// PublishedResponse — ответ на публикацию версии.
type PublishedResponse struct {
	Definition DefinitionResponse `json:"definition"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// SessionResponse — сессия из API.
type SessionResponse struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"workflow_definition_id"`
	Version      int            `json:"workflow_version"`
	Name         string         `json:"name,omitempty"`
	Status       string         `json:"status"`
	Context      map[string]any `json:"context,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// InstanceResponse — instance из API.
type InstanceResponse struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"flow_session_id"`
	StageID     string         `json:"stage_id"`
	Attempt     int            `json:"attempt"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result_context,omitempty"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
}

// CreatedSessionResponse — ответ на создание сессии.
type CreatedSessionResponse struct {
	Session SessionResponse  `json:"session"`
	Started InstanceResponse `json:"started_instance"`
}

// SessionContextResponse — снимок сессии.
type SessionContextResponse struct {
	Session SessionResponse    `json:"session"`
	Stage   *StageDTO          `json:"stage,omitempty"`
	Active  *InstanceResponse  `json:"active_instance,omitempty"`
	History []InstanceResponse `json:"history"`
}

// AdvanceResponse — результат advance из API.
type AdvanceResponse struct {
	Outcome    string            `json:"outcome"`
	Session    SessionResponse   `json:"session"`
	Completed  InstanceResponse  `json:"completed_instance"`
	Started    *InstanceResponse `json:"started_instance,omitempty"`
	NextStages []StageDTO        `json:"next_stages,omitempty"`
}

// PointerResponse — указатель caller→session из API.
type PointerResponse struct {
	Caller    string `json:"caller"`
	SessionID string `json:"session_id"`
	UpdatedAt string `json:"updated_at"`
}

// --- Request types ---

// CreateSessionRequest — создание сессии.
type CreateSessionRequest struct {
	DefinitionID string `json:"workflow_definition_id"`
	Version      int    `json:"workflow_version,omitempty"`
	Name         string `json:"name,omitempty"`
}

// ListSessionsOpts — параметры фильтрации сессий.
type ListSessionsOpts struct {
	DefinitionID string
	Status       string
	Limit        int
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

// Client — HTTP-клиент для Stagehand API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Definitions ---

// ListDefinitions возвращает последние версии всех definitions.
func (c *Client) ListDefinitions() ([]DefinitionResponse, error) {
	var defs []DefinitionResponse
	err := c.list("/api/v1/definitions", nil, &defs)
	return defs, err
}

// PublishDefinition публикует первую версию нового definition.
func (c *Client) PublishDefinition(draft json.RawMessage) (*PublishedResponse, error) {
	var pub PublishedResponse
	err := c.post("/api/v1/definitions", draft, &pub)
	return &pub, err
}

// PublishVersion публикует новую версию существующего definition.
func (c *Client) PublishVersion(defID string, draft json.RawMessage) (*PublishedResponse, error) {
	var pub PublishedResponse
	err := c.post("/api/v1/definitions/"+defID+"/versions", draft, &pub)
	return &pub, err
}

// GetDefinition возвращает последнюю версию definition.
func (c *Client) GetDefinition(id string) (*DefinitionResponse, error) {
	var def DefinitionResponse
	err := c.get("/api/v1/definitions/"+id, &def)
	return &def, err
}

// GetDefinitionVersion возвращает конкретную версию definition.
func (c *Client) GetDefinitionVersion(id string, version int) (*DefinitionResponse, error) {
	var def DefinitionResponse
	err := c.get(fmt.Sprintf("/api/v1/definitions/%s/versions/%d", id, version), &def)
	return &def, err
}

// ListVersions возвращает все версии definition.
func (c *Client) ListVersions(defID string) ([]DefinitionResponse, error) {
	var versions []DefinitionResponse
	err := c.list("/api/v1/definitions/"+defID+"/versions", nil, &versions)
	return versions, err
}

// --- Sessions ---

// ListSessions возвращает сессии с фильтрацией.
func (c *Client) ListSessions(opts ListSessionsOpts) ([]SessionResponse, error) {
	params := url.Values{}
	if opts.DefinitionID != "" {
		params.Set("definition_id", opts.DefinitionID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var sessions []SessionResponse
	err := c.list("/api/v1/sessions", params, &sessions)
	return sessions, err
}

// CreateSession создаёт сессию.
func (c *Client) CreateSession(req CreateSessionRequest) (*CreatedSessionResponse, error) {
	var created CreatedSessionResponse
	err := c.post("/api/v1/sessions", req, &created)
	return &created, err
}

// GetSession возвращает полный снимок сессии.
func (c *Client) GetSession(id string) (*SessionContextResponse, error) {
	var sc SessionContextResponse
	err := c.get("/api/v1/sessions/"+id, &sc)
	return &sc, err
}

// GetHistory возвращает историю instances сессии.
func (c *Client) GetHistory(id string) ([]InstanceResponse, error) {
	var history []InstanceResponse
	err := c.list("/api/v1/sessions/"+id+"/history", nil, &history)
	return history, err
}

// Advance завершает активную стадию и продвигает сессию.
func (c *Client) Advance(id string, result map[string]any) (*AdvanceResponse, error) {
	body := map[string]any{"result": result}
	var res AdvanceResponse
	err := c.post("/api/v1/sessions/"+id+"/advance", body, &res)
	return &res, err
}

// ResumeInto запускает выбранную стадию.
func (c *Client) ResumeInto(id, stageID string) (*InstanceResponse, error) {
	body := map[string]string{"stage_id": stageID}
	var inst InstanceResponse
	err := c.post("/api/v1/sessions/"+id+"/resume-into", body, &inst)
	return &inst, err
}

// Pause приостанавливает сессию.
func (c *Client) Pause(id string) (*SessionResponse, error) {
	var sess SessionResponse
	err := c.post("/api/v1/sessions/"+id+"/pause", struct{}{}, &sess)
	return &sess, err
}

// Resume возобновляет сессию.
func (c *Client) Resume(id string) (*SessionResponse, error) {
	var sess SessionResponse
	err := c.post("/api/v1/sessions/"+id+"/resume", struct{}{}, &sess)
	return &sess, err
}

// Abort прерывает сессию.
func (c *Client) Abort(id, reason string) (*SessionResponse, error) {
	body := map[string]string{"reason": reason}
	var sess SessionResponse
	err := c.post("/api/v1/sessions/"+id+"/abort", body, &sess)
	return &sess, err
}

// PurgeSession удаляет сессию и её историю.
func (c *Client) PurgeSession(id string) error {
	return c.delete("/api/v1/sessions/" + id)
}

// --- Pointers ---

// GetPointer возвращает привязку caller.
func (c *Client) GetPointer(caller string) (*PointerResponse, error) {
	var p PointerResponse
	err := c.get("/api/v1/pointers/"+caller, &p)
	return &p, err
}

// SetPointer привязывает caller к сессии.
func (c *Client) SetPointer(caller, sessionID string) (*PointerResponse, error) {
	body := map[string]string{"session_id": sessionID}
	var p PointerResponse
	err := c.put("/api/v1/pointers/"+caller, body, &p)
	return &p, err
}

// DeletePointer снимает привязку caller.
func (c *Client) DeletePointer(caller string) error {
	return c.delete("/api/v1/pointers/" + caller)
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
