package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeghana/internal/api/middleware"
	"resumeghana/internal/auth"
	"resumeghana/internal/worker"
)

const (
	// wsAuthTimeout 为连接建立后等待鉴权消息的最长时间。
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// NotificationSubscriber 订阅用户通知频道，*redis.Client 满足该接口。
type NotificationSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 负责 WebSocket 鉴权，并把导出通知从 Redis 转发给前端。
type WsHandler struct {
	subscriber NotificationSubscriber
	validator  middleware.TokenValidator
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源连接。
func NewWsHandler(subscriber NotificationSubscriber, validator middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WsHandler{
		subscriber: subscriber,
		validator:  validator,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r)
			},
		},
	}
}

func originAllowed(allowed []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowed) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, a := range allowed {
		if strings.EqualFold(origin, a) {
			return true
		}
	}
	return false
}

// report 非阻塞地上报第一个错误；两个循环都可能失败，只保留先到的一个。
func report(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 负责升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	userIDCh := make(chan uint, 1)
	errCh := make(chan error, 1)

	go h.readLoop(ctx, conn, userIDCh, errCh, cancel, baseLog)

	var userID uint
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		}
		return
	case userID = <-userIDCh:
	}

	userLog := baseLog.With(slog.Uint64("user_id", uint64(userID)))
	go h.subscribeLoop(ctx, conn, userID, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			userLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			userLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userIDCh chan<- uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			writeClose(conn, websocket.CloseAbnormalClosure, "read error")
			report(errCh, fmt.Errorf("read message: %w", err))
			cancel()
			return
		}

		if !authenticated {
			userID, reason, err := h.authenticate(message)
			if err != nil {
				writeClose(conn, websocket.ClosePolicyViolation, reason)
				report(errCh, err)
				cancel()
				return
			}
			authenticated = true
			_ = conn.SetReadDeadline(time.Time{})
			userIDCh <- userID
			log.Info("websocket authenticated", slog.Uint64("user_id", uint64(userID)))
			continue
		}

		// 鉴权后的消息直接丢弃，读循环只用于发现断开。
	}
}

// authenticate 解析首条鉴权消息，失败时返回关闭原因。
func (h *WsHandler) authenticate(message []byte) (uint, string, error) {
	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		return 0, "invalid auth payload", fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		return 0, "auth required", fmt.Errorf("invalid auth message")
	}
	claims, err := h.validator.ValidateToken(authMsg.Token)
	if err != nil {
		return 0, "unauthorized", fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != auth.TokenTypeAccess || claims.UserID == 0 {
		return 0, "access token required", fmt.Errorf("invalid token type: %s", claims.TokenType)
	}
	return claims.UserID, "", nil
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userID uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := worker.NotifyChannel(userID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				report(errCh, fmt.Errorf("pubsub channel closed"))
				cancel()
				return
			}

			log.Debug("forwarding export notification", slog.String("channel", channel))
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				report(errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				report(errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}
