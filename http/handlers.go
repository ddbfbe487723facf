package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/marwamagdy-create/DEPI/ml"
	"github.com/marwamagdy-create/DEPI/monitoring"
)

// HandlerOptions 页面与WebSocket相关的可选配置
type HandlerOptions struct {
	Title          string
	Notice         string
	AllowedOrigins []string
	Metrics        *monitoring.PredictionMetrics
}

// Handler 持有预测服务所需的全部依赖，由main注入
type Handler struct {
	predictor *ml.Predictor
	page      *Page
	validator *InputValidator
	upgrader  websocket.Upgrader
	metrics   *monitoring.PredictionMetrics
	logger    *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(ctx context.Context, predictor *ml.Predictor, opts HandlerOptions, logger *zap.Logger) (*Handler, error) {
	if predictor == nil {
		return nil, errors.New("predictor is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	title := opts.Title
	if title == "" {
		title = "Diabetes Prediction App"
	}
	page, err := NewPage(title, opts.Notice, predictor.Model().Source())
	if err != nil {
		return nil, err
	}
	validator, err := NewInputValidator(ctx)
	if err != nil {
		return nil, err
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewPredictionMetrics()
	}
	return &Handler{
		predictor: predictor,
		page:      page,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Register 注册所有路由
func (h *Handler) Register(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFS, "static")

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /{$}", h.handleSubmit)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	mux.HandleFunc("GET /api/openapi.yaml", h.handleOpenAPI)
	mux.HandleFunc("GET /api/ws/predict", h.handleLivePredict)
}

// handleIndex 显示带默认值的表单
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := h.page.data(formFromInput(ml.DefaultPatientInput()))
	h.renderPage(w, r, http.StatusOK, data)
}

// handleSubmit 处理表单提交并在同一页面显示结果
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := h.page.data(formFromInput(ml.DefaultPatientInput()))
		data.Error = "Could not read the submitted form."
		h.renderPage(w, r, http.StatusBadRequest, data)
		return
	}

	start := time.Now()
	input, raw, verr := parseForm(r.PostForm)
	data := h.page.data(raw)
	if verr == nil {
		prediction, err := h.predictor.Predict(r.Context(), input)
		h.record(monitoring.ChannelForm, prediction, err, time.Since(start))
		if err == nil {
			data.Result = newResultView(prediction)
			h.renderPage(w, r, http.StatusOK, data)
			return
		}
		status, message := h.classify(r, err)
		if !errors.As(err, &verr) {
			data.Error = message
			h.renderPage(w, r, status, data)
			return
		}
	} else {
		h.metrics.RecordPrediction(monitoring.ChannelForm, monitoring.OutcomeRejected, time.Since(start))
	}
	data.Errors = verr.FieldMessages()
	data.Error = "Please correct the highlighted fields."
	h.renderPage(w, r, http.StatusBadRequest, data)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.page.Render(&buf, data); err != nil {
		h.logger.Error("render page", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// predictResponse JSON预测结果
type predictResponse struct {
	Label     int              `json:"label"`
	RiskScore *float64         `json:"risk_score,omitempty"`
	RiskText  string           `json:"risk_text,omitempty"`
	Risk      string           `json:"risk"`
	Banner    string           `json:"banner"`
	Features  ml.FeatureRecord `json:"features"`
}

type errorResponse struct {
	Error  string          `json:"error"`
	Fields []ml.FieldError `json:"fields,omitempty"`
}

func newPredictResponse(p ml.Prediction) predictResponse {
	risk := "low"
	if p.HighRisk() {
		risk = "high"
	}
	return predictResponse{
		Label:     p.Label,
		RiskScore: p.RiskScore,
		RiskText:  p.RiskText(),
		Risk:      risk,
		Banner:    p.Banner(),
		Features:  p.Record,
	}
}

// handlePredict 处理JSON预测请求
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}

	status, resp := h.predictPayload(r, body, monitoring.ChannelAPI)
	writeJSON(w, status, resp)
}

// predictPayload 校验、解码并预测一个JSON负载，HTTP与WebSocket共用
func (h *Handler) predictPayload(r *http.Request, body []byte, channel monitoring.Channel) (int, interface{}) {
	start := time.Now()
	reject := func(status int, resp interface{}) (int, interface{}) {
		h.metrics.RecordPrediction(channel, monitoring.OutcomeRejected, time.Since(start))
		return status, resp
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return reject(http.StatusBadRequest, errorResponse{Error: "request body is not valid JSON"})
	}
	if err := h.validator.Validate(raw); err != nil {
		return reject(h.errorPayload(r, err))
	}
	var input ml.PatientInput
	if err := json.Unmarshal(body, &input); err != nil {
		return reject(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	prediction, err := h.predictor.Predict(r.Context(), input)
	h.record(channel, prediction, err, time.Since(start))
	if err != nil {
		return h.errorPayload(r, err)
	}
	return http.StatusOK, newPredictResponse(prediction)
}

func (h *Handler) record(channel monitoring.Channel, p ml.Prediction, err error, elapsed time.Duration) {
	outcome := monitoring.OutcomeLowRisk
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		outcome = monitoring.OutcomeRejected
	case err != nil:
		outcome = monitoring.OutcomeFailed
	case p.HighRisk():
		outcome = monitoring.OutcomeHighRisk
	}
	h.metrics.RecordPrediction(channel, outcome, elapsed)
}

func (h *Handler) errorPayload(r *http.Request, err error) (int, interface{}) {
	status, message := h.classify(r, err)
	resp := errorResponse{Error: message}
	var verr *ml.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	return status, resp
}

// classify 将预测错误映射为HTTP状态码和面向用户的消息
func (h *Handler) classify(r *http.Request, err error) (int, string) {
	requestID := GetRequestID(r.Context())
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		return http.StatusBadRequest, "invalid patient input"
	case errors.Is(err, ml.ErrSchemaMismatch):
		h.logger.Error("feature schema mismatch", zap.Error(err), zap.String("request_id", requestID))
		return http.StatusInternalServerError, "The model's feature schema does not match the inputs this form produces."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		h.logger.Error("prediction failed", zap.Error(err), zap.String("request_id", requestID))
		return http.StatusInternalServerError, "prediction failed"
	}
}

// handleSchema 返回模型期望的特征列顺序
func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	model := h.predictor.Model()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":        model.Source(),
		"columns":       model.Schema(),
		"probabilistic": model.Probabilistic(),
	})
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"model":   h.predictor.Model().Source(),
		"columns": h.predictor.Model().Schema().Len(),
		"stats":   h.metrics.GetStats(),
	})
}

// handleMetrics 以Prometheus文本格式导出预测指标
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	io.WriteString(w, h.metrics.ExportPrometheus())
}

// handleOpenAPI 返回内嵌的OpenAPI文档
func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(h.validator.Document())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
