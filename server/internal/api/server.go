package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"ccs-probe/server/internal/config"
	"ccs-probe/server/internal/export"
	"ccs-probe/server/internal/extract"
	"ccs-probe/server/internal/history"
	"ccs-probe/server/internal/model"
	"ccs-probe/server/internal/oracle"
	"ccs-probe/server/internal/session"
	"ccs-probe/server/internal/watch"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server 是探针的宿主集成面：宿主应用在每次影响界面的操作之后
// 调用这里，核心自身没有命令行入口。
type Server struct {
	config    *config.Config
	runs      session.Store
	extractor extract.Extractor
	exporter  *export.Writer
	hub       *watch.Hub
	now       func() time.Time

	// WebSocket upgrader
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, runs session.Store) *Server {
	return &Server{
		config:    cfg,
		runs:      runs,
		extractor: extract.SessionExtractor{},
		exporter:  export.NewWriter(cfg.Export.Dir, time.Now),
		hub:       watch.NewHub(cfg.Watch.WriteTimeout),
		now:       time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(cfg.Server.AllowedOrigins, origin)
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	// Gin 统一承载中间件与路由，便于扩展日志/鉴权/限流等能力。
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())
	engine.GET("/healthz", s.handleHealthz)
	engine.POST("/api/runs", s.handleCreateRun)
	engine.POST("/api/runs/:id/transitions", s.handleTransition)
	engine.POST("/api/runs/:id/validation", s.handleValidation)
	engine.GET("/api/runs/:id/bugs", s.handleBugs)
	engine.GET("/api/runs/:id/status", s.handleStatus)
	engine.POST("/api/runs/:id/export", s.handleExport)
	engine.GET("/api/runs/:id/watch", s.handleWatch)
	return engine
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createRunRequest struct {
	Mode       model.PracticeMode `json:"mode"`
	TestConfig map[string]any     `json:"test_config"`
}

type createRunResponse struct {
	RunID     string             `json:"run_id"`
	Mode      model.PracticeMode `json:"mode"`
	CreatedAt time.Time          `json:"created_at"`
	Step      int                `json:"step"`
}

// handleCreateRun 创建一次测试运行：独立 oracle、独立历史，
// 并写入以给定模式为起点的首条记录。
func (s *Server) handleCreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown mode %q", req.Mode)})
		return
	}

	now := s.now()
	run := &session.Run{
		ID:        newRunID(now),
		Mode:      string(req.Mode),
		CreatedAt: now,
		Oracle:    oracle.New(req.TestConfig, history.NewInMemoryStore(), s.now),
	}

	seed, err := run.Oracle.Initialize(c.Request.Context(), req.Mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "initialize run failed"})
		return
	}
	if err := s.runs.Save(c.Request.Context(), run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save run failed"})
		return
	}

	c.JSON(http.StatusOK, createRunResponse{
		RunID:     run.ID,
		Mode:      req.Mode,
		CreatedAt: run.CreatedAt,
		Step:      seed.Step,
	})
}

type transitionRequest struct {
	// Session 宿主 UI 会话的原始快照，交给提取适配器转换。
	Session extract.RawSession `json:"session"`
	// User 测试者本步的意图与预期。
	User userStateRequest `json:"user"`
}

type userStateRequest struct {
	ActiveIntents   []model.UserIntent `json:"active_intents"`
	ExpectedVisible []model.UIElement  `json:"expected_visible"`
}

type transitionResponse struct {
	Step                   int                   `json:"step"`
	Satisfied              [][2]string           `json:"satisfied_interactions"`
	UnsatisfiedUserIntents []model.UserIntent    `json:"unsatisfied_user_intents"`
	UnusedAppCapabilities  []model.AppCapability `json:"unused_app_capabilities"`
	InvariantViolations    []string              `json:"invariant_violations"`
}

// handleTransition 接收宿主上报的状态转移：
// 原始快照 → 提取适配器 → oracle.Transition（配对 + 不变量检查）。
// 适配器违约产出的坏状态不会让请求失败，而是以不变量违反的形式
// 出现在响应与缺陷账上。
func (s *Server) handleTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	for _, intent := range req.User.ActiveIntents {
		if !intent.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown intent %q", intent)})
			return
		}
	}
	for _, elem := range req.User.ExpectedVisible {
		if !elem.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown ui element %q", elem)})
			return
		}
	}

	run, ok := s.lockedRun(c)
	if !ok {
		return
	}
	defer run.Unlock()

	app := s.extractor.Extract(req.Session)
	user := model.NewUserState()
	user.ActiveIntents = model.SetOf(req.User.ActiveIntents...)
	user.ExpectedVisible = model.SetOf(req.User.ExpectedVisible...)

	inter, err := run.Oracle.Transition(c.Request.Context(), app, user)
	if err != nil {
		log.Printf("[API] transition failed run=%s: %v", run.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transition failed"})
		return
	}

	s.broadcastStatus(c, run)

	c.JSON(http.StatusOK, transitionResponse{
		Step:                   inter.Step,
		Satisfied:              satisfiedPairs(inter),
		UnsatisfiedUserIntents: model.SortedKeys(inter.Unsatisfied),
		UnusedAppCapabilities:  model.SortedKeys(inter.UnusedCapabilities),
		InvariantViolations:    inter.App.CheckInvariants(),
	})
}

type validationRequest struct {
	// Matches 用指针区分"显式 false"与"漏传"：漏传是请求错误，
	// 绝不能当成 mismatch 记缺陷。
	Matches *bool  `json:"matches"`
	Notes   string `json:"notes"`
}

// handleValidation 是整个探针唯一的人工决策入口：测试者对当前步
// 给出一致/不一致判定，外加自由备注。每步恰好一次。
func (s *Server) handleValidation(c *gin.Context) {
	var req validationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Matches == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "matches required"})
		return
	}

	run, ok := s.lockedRun(c)
	if !ok {
		return
	}
	defer run.Unlock()

	result, err := run.Oracle.UserValidation(c.Request.Context(), *req.Matches, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, oracle.ErrNoCurrentStep):
			c.JSON(http.StatusConflict, gin.H{"error": "no step to validate"})
		case errors.Is(err, oracle.ErrAlreadyValidated):
			c.JSON(http.StatusConflict, gin.H{"error": "step already validated"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "record validation failed"})
		}
		return
	}

	s.broadcastStatus(c, run)

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// handleBugs 返回全历史的缺陷列表（按步号顺序）。
func (s *Server) handleBugs(c *gin.Context) {
	run, ok := s.lockedRun(c)
	if !ok {
		return
	}
	defer run.Unlock()

	bugs, err := run.Oracle.Bugs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "collect bugs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bugs": bugs, "count": len(bugs)})
}

// handleStatus 返回当前步的状态报告。
func (s *Server) handleStatus(c *gin.Context) {
	run, ok := s.lockedRun(c)
	if !ok {
		return
	}
	defer run.Unlock()

	report, err := run.Oracle.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no steps recorded"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleExport 把会话文档落盘。写盘失败只报错，
// 内存历史原封不动，宿主可以直接重试。
func (s *Server) handleExport(c *gin.Context) {
	run, ok := s.lockedRun(c)
	if !ok {
		return
	}
	defer run.Unlock()

	doc, err := run.Oracle.Document(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "build session document failed"})
		return
	}

	path, err := s.exporter.Write(run.ID, doc)
	if err != nil {
		log.Printf("[API] export failed run=%s: %v", run.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write session document failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "total_steps": doc.TotalSteps})
}

// handleWatch 升级为 WebSocket，把之后每一步的状态报告实时推给观察者。
func (s *Server) handleWatch(c *gin.Context) {
	run, err := s.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] upgrade watch conn failed run=%s: %v", run.ID, err)
		return
	}

	s.hub.Register(run.ID, conn)

	// 接上来先推一帧当前状态（有的话），观察者不用等下一次转移。
	run.Lock()
	if report, err := run.Oracle.Status(c.Request.Context()); err == nil {
		s.hub.Broadcast(run.ID, report)
	}
	run.Unlock()

	// 读循环只为感知对端关闭；观察者不许上行任何指令。
	go func() {
		defer s.hub.Unregister(run.ID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastStatus 在持有运行锁的前提下推送最新状态报告。
func (s *Server) broadcastStatus(c *gin.Context, run *session.Run) {
	report, err := run.Oracle.Status(c.Request.Context())
	if err != nil {
		return
	}
	s.hub.Broadcast(run.ID, report)
}

// lockedRun 取出运行并加锁；找不到时直接写好响应。
func (s *Server) lockedRun(c *gin.Context) (*session.Run, bool) {
	run, err := s.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	run.Lock()
	return run, true
}

func satisfiedPairs(inter *model.Interaction) [][2]string {
	intents := make(map[model.UserIntent]bool, len(inter.Satisfied))
	for intent := range inter.Satisfied {
		intents[intent] = true
	}
	pairs := make([][2]string, 0, len(intents))
	for _, intent := range model.SortedKeys(intents) {
		pairs = append(pairs, [2]string{string(intent), string(inter.Satisfied[intent])})
	}
	return pairs
}

func newRunID(now time.Time) string {
	return fmt.Sprintf("R_%d", now.UnixNano())
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if slices.Contains(s.config.Server.AllowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
