package webserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/open-beagle/gst-element/internal/gstreamer"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 54 * time.Second
	streamBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleMessageStream 通过WebSocket推送元素消息
// GET /ws/messages?source=NAME&type=error
func (ws *WebServer) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	ws.mutex.RLock()
	source := ws.messages
	ws.mutex.RUnlock()

	if source == nil {
		http.Error(w, "message stream not available", http.StatusServiceUnavailable)
		return
	}

	// 先订阅，保证升级完成后发布的消息不会丢失
	messages, cancel := source.Subscribe(streamBuffer)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		ws.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	filterSource := r.URL.Query().Get("source")
	filterType := gstreamer.MessageType(r.URL.Query().Get("type"))

	done := make(chan struct{})

	go ws.streamReadPump(conn, done)
	ws.streamWritePump(conn, messages, done, func(msg gstreamer.Message) bool {
		if filterSource != "" && msg.Source != filterSource {
			return false
		}
		if filterType != "" && msg.Type != filterType {
			return false
		}
		return true
	})
	cancel()
}

// streamReadPump 读取并丢弃客户端消息，连接关闭时关闭 done
func (ws *WebServer) streamReadPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Debugf("Message stream read error: %v", err)
			}
			return
		}
	}
}

// streamWritePump 将匹配的消息写给客户端
func (ws *WebServer) streamWritePump(conn *websocket.Conn, messages <-chan gstreamer.Message, done <-chan struct{}, match func(gstreamer.Message) bool) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-messages:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bus stopped"))
				return
			}
			if !match(msg) {
				continue
			}

			data, err := json.Marshal(msg)
			if err != nil {
				ws.logger.Warnf("Failed to encode message %s: %v", msg.ID, err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ws.logger.Debugf("Message stream write error: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
