package ws

import (
    "context"
    "net/http"
    "sync"

    "github.com/gin-gonic/gin"
    socketio "github.com/googollee/go-socket.io"
    "github.com/kiliankoe/dixit/internal/game"
    "github.com/rs/zerolog/log"
)

type ConnCtx struct {
    GameID   string
    PlayerID string // empty for a spectating connection
}

// Server carries player actions over Socket.IO and fans engine events out to
// every connection in a game's room.
type Server struct {
    M            *game.Manager
    WinningScore int

    io      *socketio.Server
    events  chan game.Event
    mu      sync.RWMutex
    members map[string]map[string]socketio.Conn // gameID -> socketID -> Conn

    // Games whose events overflowed the queue and still owe their
    // connections a state refresh.
    staleMu sync.Mutex
    stale   map[string]bool
    kick    chan struct{}
}

func New(m *game.Manager, winningScore int) *Server {
    return &Server{
        M:            m,
        WinningScore: winningScore,
        events:       make(chan game.Event, 256),
        members:      make(map[string]map[string]socketio.Conn),
        stale:        make(map[string]bool),
        kick:         make(chan struct{}, 1),
    }
}

// Notify queues an event. It is called while the manager holds the game lock,
// so the actual fan-out, which reads the game again, runs on its own goroutine.
// When the queue is full the event itself is dropped, but the game is marked
// stale so its connections still get one fresh state.
func (srv *Server) Notify(ev game.Event) {
    select {
    case srv.events <- ev:
    default:
        log.Warn().Str("game", ev.GameID()).Str("event", EventName(ev)).Msg("event queue full, coalescing into a state refresh")
        srv.staleMu.Lock()
        srv.stale[ev.GameID()] = true
        srv.staleMu.Unlock()
        select {
        case srv.kick <- struct{}{}:
        default:
        }
    }
}

// takeStale returns and clears the games owing a state refresh.
func (srv *Server) takeStale() []string {
    srv.staleMu.Lock()
    defer srv.staleMu.Unlock()
    out := make([]string, 0, len(srv.stale))
    for code := range srv.stale {
        out = append(out, code)
    }
    srv.stale = make(map[string]bool)
    return out
}

func (srv *Server) dispatch() {
    for {
        select {
        case ev, ok := <-srv.events:
            if !ok {
                return
            }
            code := ev.GameID()
            if srv.io != nil {
                srv.io.BroadcastToRoom("/", code, EventName(ev), ev)
            }
            srv.emitStateTo(code)
        case <-srv.kick:
        }
        for _, code := range srv.takeStale() {
            srv.emitStateTo(code)
        }
    }
}

// EventName is the Socket.IO event an engine event is published under.
func EventName(ev game.Event) string {
    switch ev.(type) {
    case game.PlayerJoined:
        return "game:playerJoined"
    case game.GameStarted:
        return "game:started"
    case game.RoundStarted:
        return "game:roundStarted"
    case game.StoryTold:
        return "game:storyTold"
    case game.CardPlayed:
        return "game:cardPlayed"
    case game.StoryGuessed:
        return "game:guessed"
    case game.RoundScored:
        return "game:roundScored"
    case game.CardsWithdrawn:
        return "game:cardsWithdrawn"
    case game.GameEnded:
        return "game:ended"
    }
    return "game:event"
}

type cardPayload struct {
    CardID int    `json:"cardId"`
    Phrase string `json:"phrase"`
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
    io := socketio.NewServer(nil)
    srv.io = io

    io.OnConnect("/", func(s socketio.Conn) error {
        s.SetContext(&ConnCtx{})
        log.Info().Str("sid", s.ID()).Msg("socket connected")
        return nil
    })

    // game:create
    io.OnEvent("/", "game:create", func(s socketio.Conn, payload struct {
        WinningScore int `json:"winningScore"`
    }) map[string]any {
        score := payload.WinningScore
        if score == 0 {
            score = srv.WinningScore
        }
        id, err := srv.M.Create(context.Background(), score)
        if err != nil {
            return srv.err(s, err)
        }
        s.SetContext(&ConnCtx{GameID: id})
        s.Join(id)
        srv.addMember(id, s)
        log.Info().Str("sid", s.ID()).Str("game", id).Msg("game:create")
        srv.emitStateTo(id)
        return map[string]any{"gameId": id}
    })

    // game:join
    io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
        GameID string `json:"gameId"`
        Name   string `json:"name"`
    }) map[string]any {
        playerID, err := srv.M.Join(context.Background(), payload.GameID, payload.Name)
        if err != nil {
            return srv.err(s, err)
        }
        s.SetContext(&ConnCtx{GameID: payload.GameID, PlayerID: playerID})
        s.Join(payload.GameID)
        srv.addMember(payload.GameID, s)
        log.Info().Str("sid", s.ID()).Str("game", payload.GameID).Str("player", playerID).Msg("game:join")
        return map[string]any{"playerId": playerID}
    })

    // game:resume (reconnection)
    io.OnEvent("/", "game:resume", func(s socketio.Conn, payload struct {
        GameID   string `json:"gameId"`
        PlayerID string `json:"playerId"`
    }) map[string]any {
        v, err := srv.M.View(context.Background(), payload.GameID, payload.PlayerID)
        if err != nil {
            return srv.err(s, err)
        }
        if payload.PlayerID != "" && v.You == nil {
            return srv.err(s, game.NewError(game.KindNotFound, "player %s not found", payload.PlayerID))
        }
        s.SetContext(&ConnCtx{GameID: payload.GameID, PlayerID: payload.PlayerID})
        s.Join(payload.GameID)
        srv.addMember(payload.GameID, s)
        log.Info().Str("sid", s.ID()).Str("game", payload.GameID).Str("player", payload.PlayerID).Msg("game:resume")
        s.Emit("game:state", v)
        return map[string]any{"ok": true}
    })

    io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.Start(context.Background(), ctx.GameID))
    })

    io.OnEvent("/", "game:story", func(s socketio.Conn, payload cardPayload) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.TellStory(context.Background(), ctx.GameID, ctx.PlayerID, payload.Phrase, payload.CardID))
    })

    io.OnEvent("/", "game:play", func(s socketio.Conn, payload cardPayload) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.PlayCard(context.Background(), ctx.GameID, ctx.PlayerID, payload.CardID))
    })

    io.OnEvent("/", "game:guess", func(s socketio.Conn, payload cardPayload) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.GuessStory(context.Background(), ctx.GameID, ctx.PlayerID, payload.CardID))
    })

    io.OnEvent("/", "game:score", func(s socketio.Conn) map[string]any {
        ctx := connCtx(s)
        gains, err := srv.M.Score(context.Background(), ctx.GameID)
        if err != nil {
            return srv.err(s, err)
        }
        return map[string]any{"gains": gains}
    })

    io.OnEvent("/", "game:withdraw", func(s socketio.Conn) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.WithdrawCards(context.Background(), ctx.GameID))
    })

    io.OnEvent("/", "game:next", func(s socketio.Conn) map[string]any {
        ctx := connCtx(s)
        return srv.ack(s, srv.M.StartNextRound(context.Background(), ctx.GameID))
    })

    io.OnError("/", func(s socketio.Conn, e error) {
        log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
    })
    io.OnDisconnect("/", func(s socketio.Conn, reason string) {
        if ctx, ok := s.Context().(*ConnCtx); ok && ctx.GameID != "" {
            srv.removeMember(ctx.GameID, s)
        }
        log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
    })

    go io.Serve()
    go srv.dispatch()

    r.GET("/socket.io/*any", gin.WrapH(io))
    r.POST("/socket.io/*any", gin.WrapH(io))

    // Basic CORS preflight for Socket.IO POST
    r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
        c.Header("Access-Control-Allow-Origin", "*")
        c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
        c.Header("Access-Control-Allow-Headers", "Content-Type")
        c.Status(http.StatusNoContent)
    })

    return io
}

// Close stops the event fan-out.
func (srv *Server) Close() {
    close(srv.events)
}

func connCtx(s socketio.Conn) *ConnCtx {
    if ctx, ok := s.Context().(*ConnCtx); ok {
        return ctx
    }
    return &ConnCtx{}
}

func (srv *Server) addMember(code string, c socketio.Conn) {
    srv.mu.Lock()
    defer srv.mu.Unlock()
    if srv.members[code] == nil {
        srv.members[code] = make(map[string]socketio.Conn)
    }
    srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
    srv.mu.Lock()
    defer srv.mu.Unlock()
    if m := srv.members[code]; m != nil {
        delete(m, c.ID())
        if len(m) == 0 {
            delete(srv.members, code)
        }
    }
}

func (srv *Server) conns(code string) []socketio.Conn {
    srv.mu.RLock()
    defer srv.mu.RUnlock()
    out := make([]socketio.Conn, 0, len(srv.members[code]))
    for _, c := range srv.members[code] {
        out = append(out, c)
    }
    return out
}

// emitStateTo sends every connection in the game its own view.
func (srv *Server) emitStateTo(code string) {
    for _, c := range srv.conns(code) {
        ctx := connCtx(c)
        v, err := srv.M.View(context.Background(), code, ctx.PlayerID)
        if err != nil {
            log.Error().Err(err).Str("game", code).Msg("failed to build state")
            return
        }
        c.Emit("game:state", v)
    }
}

func (srv *Server) ack(s socketio.Conn, err error) map[string]any {
    if err != nil {
        return srv.err(s, err)
    }
    return map[string]any{"ok": true}
}

func (srv *Server) err(s socketio.Conn, err error) map[string]any {
    code := string(game.KindOf(err))
    if code == "" {
        code = "internal"
        log.Error().Err(err).Str("sid", s.ID()).Msg("socket action failed")
    }
    s.Emit("error", map[string]any{"code": code, "message": err.Error()})
    return map[string]any{"error": err.Error()}
}
