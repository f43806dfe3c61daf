package console

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gltrade/internal/application/port"
	"gltrade/internal/domain"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// Sink renders the live price table to the terminal. Ticks overwrite the
// same line; account updates print as their own rows.
type Sink struct {
	mu   sync.Mutex
	prev domain.Snapshot
}

var _ port.Sink = (*Sink)(nil)

func NewSink() *Sink { return &Sink{} }

func (s *Sink) PublishSnapshot(snap domain.Snapshot) {
	s.mu.Lock()
	prev := s.prev
	s.prev = snap
	s.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(colorize(time.Now().Format("15:04:05"), ansiDim))
	for _, sym := range snap.Symbols() {
		price := snap[sym].Price
		cell := fmt.Sprintf("  %s %s", sym, price.StringFixed(2))
		if last, ok := prev.Price(sym); ok {
			switch price.Cmp(last) {
			case 1:
				cell = colorize(cell, ansiGreen)
			case -1:
				cell = colorize(cell, ansiRed)
			}
		}
		sb.WriteString(cell)
	}
	sb.WriteString(ansiClearEOL)
	fmt.Print(sb.String())
}

func (s *Sink) PublishAccount(acc *domain.Account) {
	fmt.Printf("\n%s trade %s balance=%s equity=%s\n",
		time.Now().Format("15:04:05"),
		acc.UserID,
		acc.Balance.StringFixed(2),
		acc.Equity.StringFixed(2),
	)
}

// Close moves past the live line so the shell prompt lands fresh.
func (s *Sink) Close() {
	fmt.Print("\n")
}
