package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/production_backend/config"
	"github.com/mmdatafocus/production_backend/middlewares"
	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/plansync"
	"github.com/mmdatafocus/production_backend/testutil"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	testutil.SetupTestDB(t)
	seeded, err := models.SeedDefaultData(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)

	gin.SetMode(gin.TestMode)
	engine := plansync.NewEngine(config.PlanningAPI{},
		plansync.WithGuard(plansync.NewLocalGuard()),
		plansync.WithArchiver(nil),
	)
	r := gin.New()
	r.Use(middlewares.SessionMiddleware())
	RegisterRoutes(r, engine)
	return r
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, qrCode string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/session", "", ScanRequest{Token: qrCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info models.LoginInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	require.NotEmpty(t, info.Token)
	return info.Token
}

func orderId(t *testing.T, number int) int {
	t.Helper()
	order, err := models.GetProductionOrderByNumber(context.Background(), number)
	require.NoError(t, err)
	return order.ID
}

func machineId(t *testing.T, qrCode string) int {
	t.Helper()
	res, err := models.ResolveScanToken(context.Background(), qrCode)
	require.NoError(t, err)
	require.NotNil(t, res.Machine)
	return res.Machine.ID
}

func TestFloorFlow(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/floor/orders/selectable", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, r, "OPERADOR001")

	w = doJSON(r, http.MethodGet, "/api/floor/orders/selectable", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var selectable struct {
		Items []models.ProductionOrder `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &selectable))
	require.Len(t, selectable.Items, 1)
	assert.Equal(t, 222, selectable.Items[0].OrderNumber)

	order222 := orderId(t, 222)
	jigger := machineId(t, "JIGGER01")

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/bind", order222), token, BindRequest{MachineId: jigger})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/readings", order222), token,
		map[string]any{"machine_id": jigger, "quantity": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/readings", order222), token,
		map[string]any{"machine_id": jigger, "quantity": "2600"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/readings", order222), token,
		map[string]any{"machine_id": jigger, "quantity": "500"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reading models.ReadingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reading))
	assert.Equal(t, "500", reading.Order.ProducedQty.String())

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/machines/%d/stoppages", jigger), token,
		map[string]any{"custom_reason": "power cut"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/floor/machines/%d/stoppages", jigger), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "power cut")

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/resume", order222), token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/resume", order222), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/floor/orders/%d/bind", 9999), token, BindRequest{MachineId: jigger})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/floor/orders/abc/bind", token, BindRequest{MachineId: jigger})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/scan", "", ScanRequest{Token: "TURBO01"})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.ScanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.ScanKindMachine, res.Kind)

	w = doJSON(r, http.MethodPost, "/api/scan", "", ScanRequest{Token: "NOPE"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/scan", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/session", "", ScanRequest{Token: "JIGGER01"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	r := newTestRouter(t)

	operator := login(t, r, "OPERADOR001")
	w := doJSON(r, http.MethodGet, "/api/admin/orders", operator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := login(t, r, "ADMIN001")
	w = doJSON(r, http.MethodGet, "/api/admin/orders?status=in_progress", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []models.ProductionOrder `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 193, list.Items[0].OrderNumber)

	w = doJSON(r, http.MethodGet, "/api/admin/orders?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/admin/sync/logs", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminOrderManagement(t *testing.T) {
	r := newTestRouter(t)
	admin := login(t, r, "ADMIN001")

	w := doJSON(r, http.MethodPost, "/api/admin/orders", admin, map[string]any{
		"order_number": 500, "product": "MANUAL", "released_qty": "100",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.ProductionOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.False(t, created.FromApi)

	w = doJSON(r, http.MethodPost, "/api/admin/orders", admin, map[string]any{"order_number": 500, "product": "AGAIN"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/api/admin/orders", admin, map[string]any{"product": "NO NUMBER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/start", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/start", created.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/admin/orders/%d/pause", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPut, fmt.Sprintf("/api/admin/orders/%d", created.ID), admin, map[string]any{"note": "checked"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checked")

	w = doJSON(r, http.MethodGet, fmt.Sprintf("/api/admin/orders/%d", created.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, fmt.Sprintf("/api/admin/orders/%d", created.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/admin/orders/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = doJSON(r, http.MethodGet, "/api/admin/orders/export?status=bogus", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDeactivatedUserLosesAccess(t *testing.T) {
	r := newTestRouter(t)
	admin := login(t, r, "ADMIN001")
	operator := login(t, r, "OPERADOR002")

	res, err := models.ResolveScanToken(context.Background(), "OPERADOR002")
	require.NoError(t, err)

	w := doJSON(r, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/active", res.User.ID), admin, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/api/floor/stop-reasons", operator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/active", res.User.ID), admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", models.ErrInvalidState), http.StatusConflict},
		{models.ErrMachineBusy, http.StatusConflict},
		{models.ErrHasDependents, http.StatusConflict},
		{models.ErrQuantityExceeded, http.StatusConflict},
		{fmt.Errorf("%w qr_code", utils.ErrDuplicate), http.StatusConflict},
		{utils.ErrorRecordNotFound, http.StatusNotFound},
		{models.ErrUnrecognizedToken, http.StatusNotFound},
		{models.ErrInactiveUser, http.StatusForbidden},
		{models.ErrInvalidQuantity, http.StatusBadRequest},
		{models.ErrJustificationRequired, http.StatusBadRequest},
		{models.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errorStatus(tc.err), tc.err.Error())
	}
}
