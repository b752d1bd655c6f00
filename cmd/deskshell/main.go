// Command deskshell is the REPL/one-shot front end wiring the five-stage
// reasoning-and-planning core together: a readline-based REPL with
// .env/cache-dir/debug-log conventions and Ctrl+C-aborts-task semantics,
// driving QueryClassifier, then IntentClassifier or GoalInterpreter, then
// GoalOrchestrator, ToolResolver, and PlanExecutor.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/deskshell/reasoncore/internal/auditor"
	"github.com/deskshell/reasoncore/internal/bus"
	"github.com/deskshell/reasoncore/internal/executor"
	"github.com/deskshell/reasoncore/internal/factstore"
	"github.com/deskshell/reasoncore/internal/goalinterpreter"
	"github.com/deskshell/reasoncore/internal/goalplanner"
	"github.com/deskshell/reasoncore/internal/intentclassifier"
	"github.com/deskshell/reasoncore/internal/llmprovider"
	"github.com/deskshell/reasoncore/internal/orchestrator"
	"github.com/deskshell/reasoncore/internal/queryclassifier"
	"github.com/deskshell/reasoncore/internal/tasklog"
	"github.com/deskshell/reasoncore/internal/tools"
	"github.com/deskshell/reasoncore/internal/toolresolver"
	"github.com/deskshell/reasoncore/internal/types"
	"github.com/deskshell/reasoncore/internal/ui"
	"github.com/deskshell/reasoncore/internal/worldstate"
)

// informationAnswerPrompt is the system prompt behind every free-form
// answer this binary gives, whether via the single-path's direct bypass
// of ToolResolver or system.info.answer's tool-backed form for a nested
// info-query goal reached from the multi path.
const informationAnswerPrompt = `You are a desktop assistant answering a factual
question directly, with no tool access. Answer concisely in plain text.`

// pipeline holds every stage collaborator needed to process one request.
type pipeline struct {
	queryClassifier  *queryclassifier.Classifier
	intentClassifier *intentclassifier.Classifier
	goalInterpreter  *goalinterpreter.Interpreter
	orchestrator     *orchestrator.Orchestrator
	resolver         *toolresolver.Resolver
	toolExec         executor.ToolExecutor
	snapshot         *worldstate.Snapshotter
	answerLLM        *llmprovider.Client
	bus              *bus.Bus
	tasks            *tasklog.Registry
	confirm          func(action types.PlannedAction) bool
}

func main() {
	_ = godotenv.Load(".env")

	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "deskshell")
	_ = os.MkdirAll(cacheDir, 0755)

	if f, err := os.OpenFile(filepath.Join(cacheDir, "debug.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	b := bus.New()

	// LLM clients — each tier reads {TIER}_{API_KEY,BASE_URL,MODEL}, falling
	// back to the shared OPENAI_* vars for any unset tier variable.
	classifyLLM := llmprovider.NewTier("CLASSIFY")   // QueryClassifier, IntentClassifier
	interpretLLM := llmprovider.NewTier("INTERPRET") // GoalInterpreter — needs the longer decomposition prompt
	answerLLM := llmprovider.NewTier("ANSWER")       // information_query's free-form answer path

	registry := tools.NewRegistry(func(ctx context.Context, question string) (string, error) {
		return answerLLM.GenerateText(ctx, informationAnswerPrompt, question)
	})

	factsPath := filepath.Join(cacheDir, "facts.db")
	facts, err := factstore.Open(factsPath)
	if err != nil {
		log.Printf("deskshell: fact store unavailable at %s: %v (continuing without context_consumption fallback)", factsPath, err)
	} else {
		defer facts.Close()
	}

	workspaceRoot, err := os.Getwd()
	if err != nil {
		workspaceRoot = homeDir
	}

	planner := goalplanner.New()
	if facts != nil {
		planner = planner.WithFacts(facts)
	}
	paths := orchestrator.NewPathResolver(workspaceRoot)

	p := &pipeline{
		queryClassifier:  queryclassifier.New(classifyLLM, b),
		intentClassifier: intentclassifier.New(classifyLLM, b),
		goalInterpreter:  goalinterpreter.New(interpretLLM, b),
		orchestrator:     orchestrator.New(planner, paths, b),
		resolver:         toolresolver.New(registry, b),
		toolExec:         registry,
		snapshot:         worldstate.New(),
		answerLLM:        answerLLM,
		bus:              b,
		tasks:            tasklog.NewRegistry(filepath.Join(cacheDir, "requests")),
	}

	aud := auditor.New(b.NewTap(), filepath.Join(cacheDir, "audit.jsonl"))
	disp := ui.New(b.NewTap())

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	auditorDone := make(chan struct{})
	go aud.Run(auditorDone)
	defer close(auditorDone)
	go disp.Run(ctx)
	go p.tasks.Run(b.NewTap(), ctx.Done())

	if len(os.Args) > 1 && os.Args[1] != "" {
		p.confirm = confirmAlways // one-shot mode has no interactive channel; destructive actions proceed
		input := strings.Join(os.Args[1:], " ")
		intrCh := make(chan os.Signal, 1)
		signal.Notify(intrCh, os.Interrupt)
		go func() {
			select {
			case <-intrCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		if err := runOnce(ctx, p, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		cancel()
		time.Sleep(200 * time.Millisecond)
		return
	}

	runREPL(ctx, p, cancel, cacheDir, disp)
}

func confirmAlways(types.PlannedAction) bool { return true }

// snapshotUtterance freezes WorldState once and pairs it with text; the
// snapshot is never re-queried mid-request.
func snapshotUtterance(ctx context.Context, p *pipeline, sessionID, text string) types.Utterance {
	world, err := p.snapshot.Snapshot(ctx)
	if err != nil {
		log.Printf("deskshell: world-state snapshot failed: %v", err)
	}
	return types.Utterance{Text: text, SessionID: sessionID, World: world}
}

// process drives one utterance through the five-stage pipeline and returns
// the terminal Result. A nil error always carries a populated Result; a
// non-nil error means a stage failed before a PlanGraph could be built.
// Every request gets its own JSONL trace under ~/.cache/deskshell/requests.
func process(ctx context.Context, p *pipeline, utt types.Utterance) (types.Result, error) {
	reqID := uuid.NewString()
	p.tasks.Open(reqID, utt.Text)

	result, err := route(ctx, p, utt)

	status := string(result.FinalStatus)
	if err != nil {
		status = "error"
	}
	p.tasks.Close(reqID, status)
	return result, err
}

func route(ctx context.Context, p *pipeline, utt types.Utterance) (types.Result, error) {
	switch p.queryClassifier.Classify(ctx, utt) {
	case types.ClassSingle:
		return processSingle(ctx, p, utt)
	default:
		return processMulti(ctx, p, utt)
	}
}

// processSingle handles a Single-routed utterance. IntentClassifier only
// decides Act-vs-Ask and the intent tag — it does not extract parameters,
// so the one goal is synthesized by InterpretSingle, which fuses trailing
// clauses into the same action's params ("open youtube and search nvidia"
// becomes one browser/search goal carrying the query) instead of
// decomposing the utterance into several goals and discarding all but the
// first. The synthesized goal is folded into a one-goal, zero-dependency
// MetaGoal and driven through the same GoalOrchestrator/GoalPlanner/
// ToolResolver/PlanExecutor pipeline as the multi path.
//
// information_query is the one exception: it bypasses ToolResolver and
// PlanExecutor entirely and is answered directly by the provider.
func processSingle(ctx context.Context, p *pipeline, utt types.Utterance) (types.Result, error) {
	ir := p.intentClassifier.Classify(ctx, utt)
	if ir.Decision == types.DecisionAsk {
		return types.Result{
			FinalStatus: types.FinalBlocked,
			Summary:     "clarification needed: " + ir.Question,
		}, nil
	}

	if ir.Intent == types.IntentInformationQuery {
		answer, err := p.answerLLM.GenerateText(ctx, informationAnswerPrompt, utt.Text)
		if err != nil {
			return types.Result{FinalStatus: types.FinalFailed, Summary: "could not answer: " + err.Error()}, nil
		}
		return types.Result{FinalStatus: types.FinalSuccess, Summary: answer}, nil
	}

	goal, ok := p.goalInterpreter.InterpretSingle(ctx, utt, ir.Intent)
	if !ok {
		return types.Result{FinalStatus: types.FinalBlocked, Summary: "could not interpret goal"}, nil
	}
	single := types.MetaGoal{MetaType: types.MetaSingle, Goals: []types.Goal{goal}}

	return planAndExecute(ctx, p, single, utt.World)
}

func processMulti(ctx context.Context, p *pipeline, utt types.Utterance) (types.Result, error) {
	meta := p.goalInterpreter.Interpret(ctx, utt)
	if err := meta.Validate(); err != nil {
		return types.Result{FinalStatus: types.FinalBlocked, Summary: "invalid goal decomposition: " + err.Error()}, nil
	}
	return planAndExecute(ctx, p, meta, utt.World)
}

// planAndExecute runs meta through GoalOrchestrator and, on any plannable
// goal, PlanExecutor — the shared tail of both the single and multi paths.
func planAndExecute(ctx context.Context, p *pipeline, meta types.MetaGoal, world types.WorldState) (types.Result, error) {
	orchResult := p.orchestrator.Orchestrate(meta, world)
	if orchResult.Graph == nil || orchResult.Status == types.OrchestrationBlocked {
		return types.Result{FinalStatus: types.FinalBlocked, Summary: "no goal in this request could be planned"}, nil
	}

	exec := executor.New(p.resolver, p.toolExec, p.bus, nil, p.confirm)
	return exec.Execute(ctx, *orchResult.Graph, world), nil
}

func runOnce(ctx context.Context, p *pipeline, input string) error {
	utt := snapshotUtterance(ctx, p, uuid.NewString(), input)
	result, err := process(ctx, p, utt)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runREPL(ctx context.Context, p *pipeline, cancel context.CancelFunc, cacheDir string, disp *ui.Display) {
	fmt.Println("\033[1m\033[36m⚡ deskshell\033[0m — reasoning core  \033[2m(exit/Ctrl-D to quit | debug: ~/.cache/deskshell/debug.log)\033[0m")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36m>\033[0m ",
		HistoryFile:       filepath.Join(cacheDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init error: %v\n", err)
		cancel()
		return
	}
	defer rl.Close()

	var taskMu sync.Mutex
	var taskCancel context.CancelFunc

	intrCh := make(chan os.Signal, 1)
	signal.Notify(intrCh, os.Interrupt)
	defer signal.Stop(intrCh)
	go func() {
		for {
			select {
			case <-intrCh:
				taskMu.Lock()
				tc := taskCancel
				taskMu.Unlock()
				if tc != nil {
					tc()
					disp.Abort()
					fmt.Print("\r\033[K\n\033[33m⚠️  task aborted\033[0m  (type 'exit' or Ctrl+D to quit)\n")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sessionID := uuid.NewString()
	p.confirm = makeConfirm(rl)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("\n\033[2m(Ctrl+C again or type 'exit' to quit)\033[0m")
			line2, err2 := rl.Readline()
			if err2 == readline.ErrInterrupt || strings.TrimSpace(line2) == "exit" || strings.TrimSpace(line2) == "quit" {
				cancel()
				return
			}
			line, err = line2, err2
		}
		if err != nil {
			cancel()
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			cancel()
			break
		}

		taskCtx, tCancel := context.WithCancel(ctx)
		taskMu.Lock()
		taskCancel = tCancel
		taskMu.Unlock()

		disp.Resume()
		utt := snapshotUtterance(taskCtx, p, sessionID, input)
		result, procErr := process(taskCtx, p, utt)

		taskMu.Lock()
		taskCancel = nil
		taskMu.Unlock()
		tCancel()

		if procErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", procErr)
			continue
		}
		disp.WaitTaskClose(300 * time.Millisecond)
		printResult(result)

		if ctx.Err() != nil {
			return
		}
	}
}

// makeConfirm builds the interactive confirmation channel destructive
// actions require, reading a y/n answer from the same readline instance
// driving the REPL.
func makeConfirm(rl *readline.Instance) func(types.PlannedAction) bool {
	return func(action types.PlannedAction) bool {
		fmt.Printf("\033[33m⚠️  confirm destructive action:\033[0m %s [y/N] ", action.Description)
		line, err := rl.Readline()
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func printResult(result types.Result) {
	const (
		bold  = "\033[1m"
		green = "\033[32m"
		red   = "\033[31m"
		reset = "\033[0m"
	)
	color := green
	if result.FinalStatus == types.FinalFailed || result.FinalStatus == types.FinalBlocked {
		color = red
	}
	fmt.Printf("\n%s%s📋 %s%s\n", bold, color, result.FinalStatus, reset)
	fmt.Println(result.Summary)
	for _, o := range result.Outcomes {
		marker := "✅"
		if o.Status != "success" {
			marker = "❌"
		}
		line := fmt.Sprintf("  %s %s", marker, o.ActionID)
		if o.Reason != "" {
			line += ": " + o.Reason
		}
		fmt.Println(line)
	}
}
