// Command example walks a flow through a full editing session: build the
// graph, validate it, save it to a store, and load it back.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/BotXPertUPC/botflow"
	"github.com/BotXPertUPC/botflow/editor"
	"github.com/BotXPertUPC/botflow/logging"
	"github.com/BotXPertUPC/botflow/memory"
	"github.com/BotXPertUPC/botflow/serializer"
)

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stderr, slog.LevelDebug, false)

	// Wire up the in-memory implementation behind the Store interface.
	var store botflow.Store = memory.New()

	flowID, err := store.CreateFlow(ctx, &botflow.Botflow{Name: "welcome-bot"})
	if err != nil {
		log.Fatalf("create flow: %v", err)
	}

	// ── Edit: start -> message -> question with two branches ──────────
	session := editor.NewSession(
		editor.WithLogger(logger),
		editor.WithNotifier(editor.NotifierFunc(func(msg string) {
			fmt.Println("toast:", msg)
		})),
		editor.WithJitter(func() float64 { return 0 }),
	)

	greeting, err := session.AddNode(botflow.KindMessage, botflow.RootID)
	if err != nil {
		log.Fatalf("add message: %v", err)
	}
	if err := session.UpdatePayload(greeting.ID, botflow.MessagePayload{Text: "Benvingut!"}); err != nil {
		log.Fatalf("update message: %v", err)
	}

	question, err := session.AddNode(botflow.KindQuestion, greeting.ID)
	if err != nil {
		log.Fatalf("add question: %v", err)
	}
	if err := session.UpdatePayload(question.ID, botflow.QuestionPayload{
		Text:        "Què necessites?",
		Options:     []string{"Horaris", "Preus"},
		Connections: map[int]string{},
	}); err != nil {
		log.Fatalf("update question: %v", err)
	}

	// Two-phase gesture for the first option, direct connect for the second.
	if err := session.BeginOptionConnect(question.ID, 0); err != nil {
		log.Fatalf("begin option connect: %v", err)
	}
	hours, err := session.AddNode(botflow.KindMessage, question.ID)
	if err != nil {
		log.Fatalf("connect option 0: %v", err)
	}
	if err := session.UpdatePayload(hours.ID, botflow.MessagePayload{Text: "Obrim de 9 a 18."}); err != nil {
		log.Fatalf("update hours: %v", err)
	}
	prices, err := session.ConnectOption(question.ID, 1, botflow.KindMessage)
	if err != nil {
		log.Fatalf("connect option 1: %v", err)
	}

	if _, err := session.AddNode(botflow.KindFinal, hours.ID); err != nil {
		log.Fatalf("add final: %v", err)
	}
	if _, err := session.AddNode(botflow.KindFinal, prices.ID); err != nil {
		log.Fatalf("add final: %v", err)
	}

	// A final node refuses children; the rejection surfaces as a toast.
	finals := finalIDs(session.Nodes())
	if _, err := session.AddNode(botflow.KindMessage, finals[0]); err != nil {
		fmt.Println("rejected as expected:", err)
	}

	// ── Validate ──────────────────────────────────────────────────────
	report := botflow.Validate(session.Flow())
	fmt.Printf("\nvalidation: valid=%v errors=%d warnings=%d\n",
		report.Valid(), len(report.Errors), len(report.Warnings))
	for _, e := range report.Errors {
		fmt.Println("  error:", e)
	}

	// ── Save ──────────────────────────────────────────────────────────
	ser := serializer.New(store, flowID, serializer.WithLogger(logger))
	result, err := ser.Save(ctx, session.Nodes(), session.Edges())
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("\nsaved %d nodes, %d relations skipped\n", result.Created, len(result.Skipped))

	persisted, err := store.ListFlowNodes(ctx, flowID)
	if err != nil {
		log.Fatalf("list nodes: %v", err)
	}
	fmt.Println("\npersisted rows:")
	printJSON(persisted)

	// ── Load back ─────────────────────────────────────────────────────
	loaded, err := ser.Load(ctx)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	session.Restore(loaded)
	fmt.Printf("\nreloaded: %d nodes, %d edges, selection=%s\n",
		len(loaded.Nodes), len(loaded.Edges), session.SelectedNode())
}

func finalIDs(nodes []botflow.Node) []string {
	ids := []string{}
	for _, n := range nodes {
		if n.Kind == botflow.KindFinal {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
