package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/convskills/locale"
	"github.com/BaSui01/convskills/skill"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 Conversational Skills Handler
// =============================================================================

// SkillService 是 handler 依赖的 skill 调度能力，*skill.Dispatcher 实现了它
type SkillService interface {
	ListSkills(providerID string) ([]skill.SkillSummary, error)
	GetSkill(ctx context.Context, providerID, skillID, lang string) (*skill.SkillDetail, error)
	Dispatch(ctx context.Context, providerID, skillID string, req *skill.TurnRequest) (*skill.SkillResponse, error)
}

// SkillsHandler 暴露 provider 的 conversational skills
type SkillsHandler struct {
	service SkillService
	logger  *zap.Logger
}

// NewSkillsHandler 创建 skills handler
func NewSkillsHandler(service SkillService, logger *zap.Logger) *SkillsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillsHandler{
		service: service,
		logger:  logger.With(zap.String("component", "skills_handler")),
	}
}

// SkillListResponse 是 skill 列表响应
type SkillListResponse struct {
	ConversationalSkills []skill.SkillSummary `json:"conversational_skills"`
}

// Routes 在 r 上注册 /providers/{providerId}/conversational_skills 路由
func (h *SkillsHandler) Routes(r chi.Router) {
	r.Route("/providers/{providerId}/conversational_skills", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{skillId}", h.HandleGet)
		r.Post("/{skillId}/orchestrate", h.HandleOrchestrate)
	})
}

// HandleList 列出 provider 暴露的全部 skill
// @Summary 列出 conversational skills
// @Tags skills
// @Produce json
// @Param providerId path string true "provider ID"
// @Success 200 {object} SkillListResponse
// @Failure 400 {object} Response "provider 无效"
// @Router /providers/{providerId}/conversational_skills [get]
func (h *SkillsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerId")

	summaries, err := h.service.ListSkills(providerID)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, SkillListResponse{ConversationalSkills: summaries})
}

// HandleGet 返回单个 skill 及其输入 slot。
// 语言取自 ?lang=，其次 Accept-Language。
// @Summary 获取 conversational skill
// @Tags skills
// @Produce json
// @Param providerId path string true "provider ID"
// @Param skillId path string true "skill ID"
// @Param lang query string false "语言"
// @Success 200 {object} skill.SkillDetail
// @Failure 400 {object} Response "provider 或 skill 无效"
// @Router /providers/{providerId}/conversational_skills/{skillId} [get]
func (h *SkillsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerId")
	skillID := chi.URLParam(r, "skillId")

	detail, err := h.service.GetSkill(r.Context(), providerID, skillID, requestLanguage(r))
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// HandleOrchestrate 执行一个 turn，原样返回 turn 输出
// @Summary 编排一个 turn
// @Tags skills
// @Accept json
// @Produce json
// @Param providerId path string true "provider ID"
// @Param skillId path string true "skill ID"
// @Param request body skill.TurnRequest true "turn 输入"
// @Success 200 {object} skill.SkillResponse
// @Failure 400 {object} Response "provider 或 skill 无效"
// @Router /providers/{providerId}/conversational_skills/{skillId}/orchestrate [post]
func (h *SkillsHandler) HandleOrchestrate(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerId")
	skillID := chi.URLParam(r, "skillId")

	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req skill.TurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if ce := h.logger.Check(zap.DebugLevel, "orchestrate request"); ce != nil {
		ce.Write(
			zap.String("provider_id", providerID),
			zap.String("skill_id", skillID),
			zap.Any("input", req.Input),
			zap.Any("context", Redact(req.Context)),
			zap.Int("slots", len(req.Slots)),
			zap.Int("local_variables", len(req.State.LocalVariables)),
			zap.Int("session_variables", len(req.State.SessionVariables)),
		)
	}

	resp, err := h.service.Dispatch(r.Context(), providerID, skillID, &req)
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	if ce := h.logger.Check(zap.DebugLevel, "orchestrate response"); ce != nil {
		ce.Write(
			zap.String("skill_id", skillID),
			zap.String("outcome", skill.Outcome(resp)),
			zap.Int("items", len(resp.Items())),
		)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// requestLanguage 返回请求语言的基础子标签；未指定时为空，由 provider 回退到默认语言
func requestLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return locale.BaseLanguage(lang)
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return ""
	}
	first, _, _ := strings.Cut(accept, ",")
	tag, _, _ := strings.Cut(first, ";")
	if tag = strings.TrimSpace(tag); tag == "*" {
		return ""
	}
	return locale.BaseLanguage(tag)
}

// =============================================================================
// 🔒 日志脱敏
// =============================================================================

const redactedValue = "[REDACTED]"

// redactedKeys 是日志中不得出现的凭据和会话数据字段
var redactedKeys = map[string]struct{}{
	"jwt":                 {},
	"jwt_details":         {},
	"OMS":                 {},
	"local_variables":     {},
	"session_variables":   {},
	"action_variables":    {},
	"skill_variables":     {},
	"conversation_memory": {},
}

// Redact 返回 v 的副本，其中敏感字段（任意深度）被替换为占位符。
// v 本身不会被修改。
func Redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if _, ok := redactedKeys[k]; ok {
				out[k] = redactedValue
				continue
			}
			out[k] = Redact(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
}
