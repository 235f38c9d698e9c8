// Command traffic_simulator sends synthetic content through the moderation
// API so rule hit rates and queue growth can be observed under load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samujjwal/stayhub/internal/observability"
)

var (
	server    string
	users     int
	totalReq  int
	conc      int
	rate      float64
	abuseRate float64
	stats     bool
	debug     bool
	label     string
)

var logger *zap.Logger

var httpClient *http.Client

const statsInterval = 5 * time.Second

var (
	countSent     uint64
	countApproved uint64
	countFlagged  uint64
	countRejected uint64
	countErrors   uint64
)

var cleanTexts = []string{
	"Bright two bedroom apartment close to the old town, quiet street.",
	"The host was friendly and check-in was easy, would stay again.",
	"Cozy studio with fast wifi, perfect for a working week.",
	"Spacious loft with great light, five minutes from the metro.",
}

var abusiveTexts = []string{
	"BUY NOW limited time offer, 100% free upgrade, don't miss out!!!!",
	"Skip the fees, pay me directly via western union before arrival.",
	"Text me on whatsapp to book outside the platform, call me at 555-123-4567.",
	"This place is run by a total asshole, worst shithole in town.",
}

type messageReq struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
}

type reviewReq struct {
	ReviewID   string `json:"review_id"`
	ReviewerID string `json:"reviewer_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Rating     int    `json:"rating"`
}

type listingReq struct {
	ListingID   string `json:"listing_id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type moderationResp struct {
	Status string `json:"status"`
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8790", "moderation server base URL")
	flag.IntVar(&users, "users", 50, "number of unique content authors")
	flag.IntVar(&totalReq, "requests", 1000, "total requests to send")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&abuseRate, "abuse-rate", 0.1, "probability of sending abusive content")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     50,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	var interval time.Duration
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate)
	}

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					printStats()
					return
				}
			}
		}()
	}

	start := time.Now()
	next := start
	for i := 0; i < totalReq; i++ {
		if interval > 0 {
			now := time.Now()
			if now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(interval)
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			atomic.AddUint64(&countSent, 1)
			sendOne(r.Int63(), i)
		}(i)
	}
	wg.Wait()
	close(done)
	if !stats {
		printStats()
	}
}

// sendOne picks a content type and payload and posts it. Each goroutine gets
// its own rand source seeded from the shared one; rand.Rand is not safe for
// concurrent use.
func sendOne(seed int64, n int) {
	r := rand.New(rand.NewSource(seed))
	userID := fmt.Sprintf("user%d", r.Intn(users))
	text := cleanTexts[r.Intn(len(cleanTexts))]
	if r.Float64() < abuseRate {
		text = abusiveTexts[r.Intn(len(abusiveTexts))]
	}

	var path string
	var payload any
	switch r.Intn(3) {
	case 0:
		path = "/moderate/listing"
		payload = listingReq{
			ListingID:   fmt.Sprintf("sim-l-%d", n),
			OwnerID:     userID,
			Title:       "Simulated listing",
			Description: text,
		}
	case 1:
		path = "/moderate/message"
		payload = messageReq{
			MessageID: fmt.Sprintf("sim-m-%d", n),
			SenderID:  userID,
			Text:      text,
		}
	default:
		path = "/moderate/review"
		payload = reviewReq{
			ReviewID:   fmt.Sprintf("sim-r-%d", n),
			ReviewerID: userID,
			Title:      "Simulated review",
			Content:    text,
			Rating:     1 + r.Intn(5),
		}
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("marshal error", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", server+path, bytes.NewReader(blob))
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("request build error", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("moderation request error", zap.Error(err))
		return
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("read body error", zap.Error(err))
		return
	}
	if resp.StatusCode != http.StatusOK {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(body))))
		return
	}

	var out moderationResp
	if err := json.Unmarshal(body, &out); err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("decode error", zap.Error(err))
		return
	}
	switch out.Status {
	case "APPROVED":
		atomic.AddUint64(&countApproved, 1)
	case "REJECTED":
		atomic.AddUint64(&countRejected, 1)
	default:
		atomic.AddUint64(&countFlagged, 1)
	}
	logger.Debug("request", zap.String("path", path), zap.String("user", userID), zap.String("status", out.Status))
}

func printStats() {
	sent := atomic.LoadUint64(&countSent)
	app := atomic.LoadUint64(&countApproved)
	flg := atomic.LoadUint64(&countFlagged)
	rej := atomic.LoadUint64(&countRejected)
	errs := atomic.LoadUint64(&countErrors)
	var flagRate float64
	if sent > 0 {
		flagRate = float64(flg+rej) / float64(sent)
	}
	logger.Info("stats", zap.String("run", label), zap.Uint64("sent", sent), zap.Uint64("approved", app), zap.Uint64("flagged", flg), zap.Uint64("rejected", rej), zap.Uint64("errors", errs), zap.Float64("flag_rate", flagRate))
}
