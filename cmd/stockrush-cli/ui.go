package main

import (
	"fmt"
	"strings"

	"github.com/bloops-games/stockrush/internal/match"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

// observe prints what a participant would see on screen.
func observe(label string) match.Observer {
	return func(n match.Notification) {
		switch m := n.Message.(type) {
		case *protocol.Announce:
			accent.Printf("[%s] %s\n", label, m.Text)
		case *protocol.OpponentFound:
			printSuccess(fmt.Sprintf("[%s] opponent found in %s", label, m.RoomID))
		case *protocol.WaitingForOpponent:
			printInfo(fmt.Sprintf("[%s] waiting for an opponent", label))
		case *protocol.OpponentDisconnected:
			printWarn(fmt.Sprintf("[%s] %s disconnected", label, m.Participant))
		}
	}
}

func renderScores(title string, scores []room.Score) {
	accent.Println(title)
	if len(scores) == 0 {
		printWarn("no scores")
		return
	}

	for _, s := range scores {
		line := fmt.Sprintf("%2d. %-16s %s", s.Rank, truncate(s.Name, 16), formatCents(s.Worth))
		if s.Rank == 1 {
			success.Println(line)
			continue
		}
		neutral.Println(line)
	}
}

func renderView(v match.View) {
	accent.Printf("room %s ", v.RoomID)
	neutral.Printf("state=%s price=%s cash=%s holdings=%d hand=%d\n",
		v.State, formatCents(v.Price), formatCents(v.Self.Cash), v.Self.Holdings, len(v.Self.Hand))
}

// formatCents renders an integer amount of cents with two decimals.
func formatCents(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "~"
}
