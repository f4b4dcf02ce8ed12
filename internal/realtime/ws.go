package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Проверка Origin — на стороне обратного прокси; токен проверен до апгрейда.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS переводит запрос в WebSocket и транслирует события подписки.
// Возвращается, когда соединение закрыто.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, userID string, f Filter, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		logger.Warn("Ошибка апгрейда WebSocket", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := hub.Subscribe(userID, f)
	defer hub.Unsubscribe(sub)

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Отключён хабом (переполнение очереди)
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump читает входящие кадры (клиент ничего не отправляет, кроме pong
// и close) и сигнализирует о закрытии соединения.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
