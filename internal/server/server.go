package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"

	"keybox/internal/auth"
	"keybox/internal/crypto"
	"keybox/internal/vault"
)

type Server struct {
	cfg Config

	mux    *http.ServeMux
	logger *log.Logger

	auth    *auth.Authenticator
	lock    *auth.AppLock
	entries *vault.Store

	rlExchange *multiLimiter

	storageClient *mongo.Client
}

// Stores bundles the persistence and upstream collaborators so tests can run
// the full HTTP surface against in-memory backends and a stubbed identity
// service.
type Stores struct {
	Users    auth.UserStore
	Sessions auth.SessionStore
	Entries  vault.EntryStore
	Identity auth.IdentityClient
}

// New connects to Mongo and wires the production stores.
func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.setDefaults()
	if cfg.MongoURI == "" {
		return nil, errors.New("server: MongoURI required")
	}
	if cfg.MongoDB == "" {
		return nil, errors.New("server: MongoDB required")
	}

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	db := cli.Database(cfg.MongoDB)

	users, err := auth.NewMongoUserStore(ctx, db, cfg.UsersCollection)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewMongoSessionStore(ctx, db, cfg.SessionsCollection)
	if err != nil {
		return nil, err
	}
	entries, err := vault.NewMongoEntryStore(ctx, db, vault.Collections())
	if err != nil {
		return nil, err
	}

	s, err := NewWithStores(cfg, Stores{
		Users:    users,
		Sessions: sessions,
		Entries:  entries,
		Identity: auth.NewHTTPIdentityClient(cfg.IdentityURL),
	})
	if err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	s.storageClient = cli
	return s, nil
}

// NewWithStores wires the server over explicit collaborators.
func NewWithStores(cfg Config, st Stores) (*Server, error) {
	cfg.setDefaults()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	key, generated, err := crypto.LoadKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Printf("no encryption key configured; generated an ephemeral key - encrypted fields will not survive a restart")
	}
	cipher, err := crypto.NewFieldCipher(key)
	if err != nil {
		return nil, err
	}
	// The AEAD keeps its own copy of the key.
	crypto.Zero(key)

	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		logger:  logger,
		auth:    auth.NewAuthenticator(st.Users, st.Sessions, st.Identity, cfg.SessionTTL),
		lock:    auth.NewAppLock(st.Users),
		entries: vault.NewStore(st.Entries, cipher),
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlExchange = newMultiLimiter(rate.Limit(perWindow(10, time.Minute)), 10, 1*time.Hour)

	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

// Close releases the store connection; no other teardown is required.
func (s *Server) Close(ctx context.Context) error {
	if s.storageClient == nil {
		return nil
	}
	return s.storageClient.Disconnect(ctx)
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if allowed := s.allowOrigin(origin); allowed != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			if origin != "" {
				return origin
			}
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	return ""
}
