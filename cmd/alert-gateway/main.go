// cmd/alert-gateway/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
)

const serviceName = "alert-gateway"

var (
	nodeID   = serviceName + "-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 内网运维面板，允许所有来源
			return true
		},
	}
)

// Hub 维护所有在线的值班客户端，把对账告警广播给它们。
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.id] = client
			h.lock.Unlock()
			log.Printf("Operator %s connected on node %s", client.id, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.lock.Unlock()
			log.Printf("Operator %s disconnected.", client.id)
		case message := <-h.broadcast:
			h.lock.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default: // 这个客户端积压了，丢弃而不是阻塞广播
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 是一个值班前端的 WebSocket 连接。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// 前端只发心跳，读到错误说明连接没了
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	operator := r.URL.Query().Get("operator")
	if operator == "" {
		http.Error(w, "operator is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), id: operator}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeAlerts 消费对账告警 topic，原样广播给所有在线值班客户端。
func consumeAlerts(ctx context.Context, hub *Hub) {
	cfg := bootstrap.GetCurrentConfig()
	reader := mq.NewReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topics.ReconcileAlerts, serviceName)
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to read reconcile alert")
			continue
		}
		logger.Ctx(ctx).Warn().
			Str("locator", string(msg.Key)).
			Msg("reconcile alert received")
		hub.broadcast <- msg.Value
	}
}

func main() {
	bootstrap.Init()
	logger.Init(serviceName)

	hub := newHub()
	go hub.run()

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	go consumeAlerts(consumeCtx, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8088,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		OnShutdown: func(ctx context.Context) {
			stopConsumer()
		},
	})
}
