package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/robottwo/lucid/internal/config"
	"github.com/robottwo/lucid/internal/dashboard"
	"github.com/robottwo/lucid/internal/sentiment"
	"github.com/robottwo/lucid/internal/store"
	"github.com/robottwo/lucid/internal/styles"
	"github.com/robottwo/lucid/pkg/explain"
)

var (
	flagInputFile string
	flagMethods   []string
	flagPlot      bool
	flagNoStore   bool
	flagDashboard bool
)

var explainCmd = &cobra.Command{
	Use:   "explain [text]...",
	Short: "Explain model predictions for one or more texts",
	Long: `Explain scores each input text with the configured model, then asks
every configured attribution engine which tokens drove the prediction.
Texts are taken from the arguments, or one per line from --file.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&flagInputFile, "file", "f", "", "read input texts from file, one per line")
	explainCmd.Flags().StringSliceVarP(&flagMethods, "methods", "m", nil, "explanation methods to run (default from config)")
	explainCmd.Flags().BoolVar(&flagPlot, "plot", true, "render attribution plots to the terminal")
	explainCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "do not persist this run")
	explainCmd.Flags().BoolVar(&flagDashboard, "dashboard", false, "open the dashboard after explaining")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	texts, err := collectTexts(args, flagInputFile)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return fmt.Errorf("no input texts; pass them as arguments or via --file")
	}

	methods := flagMethods
	if len(methods) == 0 {
		methods = cfg.Explainers
	}

	model, modelName, postprocess, err := buildModel(cfg.Model, logger)
	if err != nil {
		return err
	}

	explainer, err := explain.New(explain.Config{
		Explainers:  methods,
		Mode:        explain.ModeClassification,
		Model:       model,
		Postprocess: postprocess,
		Labels:      sentiment.Labels(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	batch := explain.NewTextBatch(texts...)
	explanations, err := explainer.Explain(ctx, batch)
	if err != nil {
		return err
	}

	if flagPlot {
		width := 0
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			width, _, _ = term.GetSize(fd)
		}
		for _, method := range explanations.Methods() {
			fmt.Println(styles.HEADER(fmt.Sprintf("── %s ──", strings.ToUpper(method))))
			if err := explanations[method].PlotWidth(os.Stdout, width); err != nil {
				return fmt.Errorf("rendering %s explanation: %w", method, err)
			}
			fmt.Println()
		}
	}

	if flagNoStore && !flagDashboard {
		return nil
	}

	runStore, err := store.NewRunStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer func() {
		_ = runStore.Close()
	}()

	if !flagNoStore {
		runID := uuid.NewString()
		for _, method := range explanations.Methods() {
			explanation := explanations[method]
			if _, err := runStore.SaveRun(runID, method, explainer.Mode(), modelName, explanation.Elapsed, explanation); err != nil {
				return fmt.Errorf("saving run: %w", err)
			}
		}
		logger.Info("run saved",
			zap.String("run_id", runID),
			zap.Strings("methods", explanations.Methods()))
		fmt.Println(styles.MUTED("saved run " + runID))
	}

	if flagDashboard {
		server, err := dashboard.New(runStore, cfg.Dashboard.Listen, logger)
		if err != nil {
			return err
		}
		fmt.Println(styles.MUTED("dashboard listening on http://" + cfg.Dashboard.Listen + " (ctrl-c to stop)"))
		return server.Show(ctx)
	}
	return nil
}

// collectTexts merges argument texts with lines from the optional input
// file. Blank lines are skipped.
func collectTexts(args []string, path string) ([]string, error) {
	texts := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.TrimSpace(arg) != "" {
			texts = append(texts, arg)
		}
	}
	if path == "" {
		return texts, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	return texts, nil
}

// buildModel constructs the inference callable for the configured provider.
// The lexicon model emits logits and needs a softmax postprocess; LLM
// providers already return probabilities.
func buildModel(mc config.ModelConfig, logger *zap.Logger) (explain.InferenceFunc, string, explain.PostprocessFunc, error) {
	resolved := mc.Resolve()

	if resolved.Provider == "" || resolved.Provider == "lexicon" {
		classifier, err := sentiment.NewLexiconClassifier()
		if err != nil {
			return nil, "", nil, err
		}
		return classifier.Scores, "lexicon", explain.Softmax, nil
	}

	classifier, err := sentiment.NewLLMClassifier(sentiment.LLMConfig{
		BaseURL:     resolved.BaseURL,
		APIKey:      resolved.APIKey,
		ModelID:     resolved.ModelID,
		Temperature: resolved.Temperature,
	}, logger)
	if err != nil {
		return nil, "", nil, err
	}

	return classifier.Scores, resolved.ModelID, nil, nil
}
