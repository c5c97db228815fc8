package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/meibo/internal/model"
)

// EmployeeServiceInterface は従業員ハンドラーが必要とするサービスインターフェース。
type EmployeeServiceInterface interface {
	// Get は指定IDの従業員を取得する。
	Get(ctx context.Context, id int64) (*model.Employee, error)
	// List はページネーション付きで従業員一覧を取得する。
	List(ctx context.Context, page, pageSize int) (*model.PagedEmployees, error)
	// Search は名前の部分一致で従業員を検索する。
	Search(ctx context.Context, name string) ([]*model.Employee, error)
	// Create は従業員を作成する。
	Create(ctx context.Context, employee *model.Employee) (*model.Employee, error)
	// Update は指定IDの従業員情報を更新する。
	Update(ctx context.Context, id int64, employee *model.Employee) (*model.Employee, error)
	// Delete は指定IDの従業員を論理削除する。
	Delete(ctx context.Context, id int64) error
	// DeleteRange は指定ID群の従業員を一括で論理削除する。
	DeleteRange(ctx context.Context, ids []int64) error
}

// EmployeeHandler は従業員管理のHTTPハンドラー。
type EmployeeHandler struct {
	service EmployeeServiceInterface
}

// NewEmployeeHandler はEmployeeHandlerを生成する。
func NewEmployeeHandler(service EmployeeServiceInterface) *EmployeeHandler {
	return &EmployeeHandler{service: service}
}

// employeeRequest は従業員作成・更新リクエストのボディ。
type employeeRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// employeeResponse は従業員情報のAPIレスポンス。
type employeeResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// pagedEmployeesResponse はページネーション付き従業員一覧のレスポンス。
type pagedEmployeesResponse struct {
	Items      []employeeResponse `json:"items"`
	TotalCount int                `json:"totalCount"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
}

// deleteRangeRequest は一括削除リクエストのボディ。
type deleteRangeRequest struct {
	IDs []int64 `json:"ids"`
}

// Get は従業員詳細を取得する。
// GET /api/employees/{id}
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	employee, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toEmployeeResponse(employee))
}

// List は従業員一覧をページネーション付きで取得する。
// GET /api/employees?page=1&pageSize=20
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	paged, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]employeeResponse, len(paged.Items))
	for i, e := range paged.Items {
		items[i] = toEmployeeResponse(e)
	}

	writeJSONResponse(w, http.StatusOK, pagedEmployeesResponse{
		Items:      items,
		TotalCount: paged.TotalCount,
		Page:       paged.Page,
		PageSize:   paged.PageSize,
	})
}

// Search は名前の部分一致で従業員を検索する。
// GET /api/employees/search?name=田中
func (h *EmployeeHandler) Search(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]employeeResponse, len(employees))
	for i, e := range employees {
		items[i] = toEmployeeResponse(e)
	}
	writeJSONResponse(w, http.StatusOK, items)
}

// Create は従業員を作成する。
// POST /api/employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBodyResponse(w)
		return
	}

	created, err := h.service.Create(r.Context(), &model.Employee{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toEmployeeResponse(created))
}

// Update は従業員情報を更新する。
// PUT /api/employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBodyResponse(w)
		return
	}

	updated, err := h.service.Update(r.Context(), id, &model.Employee{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toEmployeeResponse(updated))
}

// Delete は従業員を論理削除する。
// DELETE /api/employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteRange は従業員を一括で論理削除する。
// DELETE /api/employees
func (h *EmployeeHandler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	var req deleteRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBodyResponse(w)
		return
	}

	if err := h.service.DeleteRange(r.Context(), req.IDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// employeeIDParam はパスパラメータidをint64として取り出す。
// 不正な場合は400を書き込み、falseを返す。
func employeeIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("従業員IDは正の整数で指定してください"))
		return 0, false
	}
	return id, true
}

// toEmployeeResponse はドメインのEmployeeをレスポンス型に変換する。
func toEmployeeResponse(e *model.Employee) employeeResponse {
	return employeeResponse{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Address:   e.Address,
		Phone:     e.Phone,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
