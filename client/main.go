package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoinRoom     = 101
	MsgTypeLeaveRoom    = 102
	MsgTypeCreateRoom   = 103
	MsgTypeStartGame    = 201
	MsgTypePlaceBet     = 202
	MsgTypePlayerAction = 203
	MsgTypeListRooms    = 301
)

// send frames and sends one packet to the server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	name := flag.String("name", "demo", "player name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Track the current room id from join responses and broadcasts.
	roomID := ""
	roomCh := make(chan string, 1)

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))

			if msgID == MsgTypeCreateRoom || msgID == MsgTypeJoinRoom {
				var result struct {
					OK   bool `json:"ok"`
					Data struct {
						Room struct {
							ID string `json:"id"`
						} `json:"room"`
					} `json:"data"`
				}
				if err := json.Unmarshal(data, &result); err == nil && result.OK {
					select {
					case roomCh <- result.Data.Room.ID:
					default:
					}
				}
			}
		}
	}()

	log.Println("Commands: create | join <roomID> | start | bet <amount> | play | pass | fold | rooms | quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case id := <-roomCh:
			roomID = id
			log.Printf("Now in room %s", roomID)
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				err = send(c, MsgTypeCreateRoom, map[string]string{"name": *name})
			case "join":
				if len(fields) < 2 {
					log.Println("usage: join <roomID>")
					continue
				}
				err = send(c, MsgTypeJoinRoom, map[string]string{"name": *name, "room_id": fields[1]})
			case "start":
				err = send(c, MsgTypeStartGame, map[string]string{"room_id": roomID})
			case "bet":
				if len(fields) < 2 {
					log.Println("usage: bet <amount>")
					continue
				}
				amount, convErr := strconv.ParseInt(fields[1], 10, 64)
				if convErr != nil {
					log.Println("invalid amount:", fields[1])
					continue
				}
				err = send(c, MsgTypePlaceBet, map[string]interface{}{"room_id": roomID, "amount": amount})
			case "play", "pass", "fold":
				err = send(c, MsgTypePlayerAction, map[string]string{"room_id": roomID, "action": fields[0]})
			case "rooms":
				err = send(c, MsgTypeListRooms, map[string]string{})
			case "quit":
				send(c, MsgTypeLeaveRoom, map[string]string{"room_id": roomID})
				return
			default:
				log.Println("unknown command:", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
