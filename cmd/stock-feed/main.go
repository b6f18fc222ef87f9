// cmd/stock-feed/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/mq"
)

// stock-feed 订阅库存流水主题，把流水实时推送给运营端 WebSocket 连接。
// 支持按 SKU 过滤: /ws?skuId=sku-1 只收该 SKU 的流水，缺省收全部。

const (
	serviceName   = "stock-feed"
	movementTopic = "stock-movement-topic"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// movementKey 是消息的分区键（SkuID），用于客户端过滤。
type broadcast struct {
	skuID   string
	payload []byte
}

// Hub 维护所有活跃连接并负责消息广播。
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	events     chan broadcast
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan broadcast, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.id] = client
			h.lock.Unlock()
			log.Printf("client %s subscribed (sku filter: %q)", client.id, client.skuFilter)
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.lock.Unlock()
			log.Printf("client %s unsubscribed", client.id)
		case event := <-h.events:
			h.lock.RLock()
			for _, client := range h.clients {
				if client.skuFilter != "" && client.skuFilter != event.skuID {
					continue
				}
				select {
				case client.send <- event.payload:
				default:
					// 慢消费者，丢弃本条而不是阻塞广播
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 是一个 WebSocket 连接的代表。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	id        string
	skuFilter string
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 只消费心跳/关闭帧
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		id:        uuid.New().String()[:8],
		skuFilter: r.URL.Query().Get("skuId"),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeMovements 把 Kafka 流水搬进 Hub 广播通道。
func consumeMovements(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	defer reader.Close()
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ERROR: fetch movement failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		hub.events <- broadcast{skuID: string(msg.Key), payload: msg.Value}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("ERROR: commit movement offset failed: %v", err)
		}
	}
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	hub := newHub()
	go hub.run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, movementTopic,
		serviceName+"-"+uuid.New().String()[:8])
	go consumeMovements(ctx, reader, hub)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	log.Printf("stock feed listening on :8093")
	if err := http.ListenAndServe(":8093", nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
