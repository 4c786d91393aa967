package gstreamer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/open-beagle/gst-element/internal/config"
)

// elementHandlers 元素管理的HTTP处理器
type elementHandlers struct {
	manager *Manager
	logger  *logrus.Entry
}

// newElementHandlers 创建元素处理器实例
func newElementHandlers(manager *Manager) *elementHandlers {
	return &elementHandlers{
		manager: manager,
		logger:  config.GetLoggerWithPrefix("element-handlers"),
	}
}

// setupElementRoutes 设置元素相关的所有路由
func (h *elementHandlers) setupElementRoutes(router *mux.Router) error {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/states", h.handleStates).Methods("GET")
	api.HandleFunc("/types", h.handleTypes).Methods("GET")
	api.HandleFunc("/types/{type}", h.handleType).Methods("GET")

	elements := api.PathPrefix("/elements").Subrouter()
	elements.HandleFunc("", h.handleListElements).Methods("GET")
	elements.HandleFunc("", h.handleCreateElement).Methods("POST")
	elements.HandleFunc("/{name}", h.handleGetElement).Methods("GET")
	elements.HandleFunc("/{name}", h.handleRemoveElement).Methods("DELETE")
	elements.HandleFunc("/{name}/state", h.handleSetState).Methods("PUT")
	elements.HandleFunc("/{name}/properties/{property}", h.handleGetProperty).Methods("GET")
	elements.HandleFunc("/{name}/properties/{property}", h.handleSetProperty).Methods("PUT")
	elements.HandleFunc("/{name}/history", h.handleHistory).Methods("GET")

	return nil
}

// ElementView is the JSON form of an element.
type ElementView struct {
	Name       string         `json:"name"`
	Factory    string         `json:"factory"`
	State      State          `json:"state"`
	Properties map[string]any `json:"properties"`
	Faults     []Fault        `json:"faults"`
	Stats      ElementStats   `json:"stats"`
}

// NewElementView snapshots e.
func NewElementView(e *Element) ElementView {
	return ElementView{
		Name:       e.Name(),
		Factory:    e.Factory().Name,
		State:      e.State(),
		Properties: e.Properties(),
		Faults:     e.Faults(),
		Stats:      e.Stats(),
	}
}

type stateEntry struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type faultEntry struct {
	Code int    `json:"code"`
	Nick string `json:"nick"`
	From State  `json:"from"`
	To   State  `json:"to"`
}

// handleStates 返回状态码与名称以及故障注入码表
// GET /api/states
func (h *elementHandlers) handleStates(w http.ResponseWriter, r *http.Request) {
	states := make([]stateEntry, 0, 5)
	for _, s := range append([]State{StateVoidPending}, States...) {
		states = append(states, stateEntry{Code: int(s), Name: s.String()})
	}

	faults := make([]faultEntry, 0, 6)
	for f := FaultNullReady; f <= FaultReadyNull; f++ {
		t, _ := f.Transition()
		faults = append(faults, faultEntry{Code: int(f), Nick: f.String(), From: t.From, To: t.To})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"states": states,
		"faults": faults,
	})
}

// handleTypes 列出已注册的元素类型
// GET /api/types
func (h *elementHandlers) handleTypes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.manager.Registry().Types())
}

// handleType 返回单个元素类型
// GET /api/types/{type}
func (h *elementHandlers) handleType(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["type"]
	t, ok := h.manager.Registry().Lookup(name)
	if !ok {
		h.writeError(w, ErrNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// handleListElements 列出所有元素
// GET /api/elements
func (h *elementHandlers) handleListElements(w http.ResponseWriter, r *http.Request) {
	elements := h.manager.List()
	views := make([]ElementView, 0, len(elements))
	for _, e := range elements {
		views = append(views, NewElementView(e))
	}
	h.writeJSON(w, http.StatusOK, views)
}

type createElementRequest struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// handleCreateElement 创建元素
// POST /api/elements
func (h *elementHandlers) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	var req createElementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "invalid request body: " + err.Error(),
		})
		return
	}

	element, err := h.manager.Create(req.Type, req.Name, req.Properties)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, NewElementView(element))
}

// handleGetElement 获取元素详情
// GET /api/elements/{name}
func (h *elementHandlers) handleGetElement(w http.ResponseWriter, r *http.Request) {
	element, err := h.manager.Get(mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewElementView(element))
}

// handleRemoveElement 移除元素
// DELETE /api/elements/{name}
func (h *elementHandlers) handleRemoveElement(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Remove(mux.Vars(r)["name"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setStateRequest struct {
	State string `json:"state"`
}

// handleSetState 设置元素状态
// PUT /api/elements/{name}/state
func (h *elementHandlers) handleSetState(w http.ResponseWriter, r *http.Request) {
	element, err := h.manager.Get(mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "invalid request body: " + err.Error(),
		})
		return
	}

	target, err := ParseState(req.State)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := element.SetState(target); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewElementView(element))
}

// handleGetProperty 读取元素属性
// GET /api/elements/{name}/properties/{property}
func (h *elementHandlers) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	element, err := h.manager.Get(vars["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	value, err := element.Property(vars["property"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":  vars["property"],
		"value": value,
	})
}

type setPropertyRequest struct {
	Value any `json:"value"`
}

// handleSetProperty 设置元素属性
// PUT /api/elements/{name}/properties/{property}
func (h *elementHandlers) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	element, err := h.manager.Get(vars["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req setPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "invalid request body: " + err.Error(),
		})
		return
	}

	if err := element.SetProperty(vars["property"], req.Value); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewElementView(element))
}

// handleHistory 返回元素状态迁移记录
// GET /api/elements/{name}/history?limit=N
func (h *elementHandlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	element, err := h.manager.Get(mux.Vars(r)["name"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		h.writeJSON(w, http.StatusOK, element.RecentHistory(limit))
		return
	}
	h.writeJSON(w, http.StatusOK, element.History())
}

// statusForError 将元素错误映射为HTTP状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConstruction):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransition):
		return http.StatusConflict
	case errors.Is(err, ErrConstruction), errors.Is(err, ErrProperty), errors.Is(err, ErrInputType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError 写入错误响应
func (h *elementHandlers) writeError(w http.ResponseWriter, err error) {
	body := map[string]interface{}{
		"status":  "error",
		"message": err.Error(),
	}
	var elementErr *ElementError
	if errors.As(err, &elementErr) {
		body["type"] = elementErr.Type.String()
		if elementErr.Debug != "" {
			body["debug"] = elementErr.Debug
		}
	}
	h.writeJSON(w, statusForError(err), body)
}

// writeJSON 写入JSON响应
func (h *elementHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Infof("Failed to encode JSON: %v", err)
	}
}
