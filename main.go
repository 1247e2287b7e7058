package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	"bsrating/beatmap"
	"bsrating/model"
	"bsrating/tokens"
)

var (
	app = kingpin.New("bsrating", "Beat Saber beatmap difficulty rating.")

	parseCmd    = app.Command("parse", "Write the canonical sample of every Standard difficulty of a song folder.")
	parseFolder = parseCmd.Arg("folder", "Song folder").Required().ExistingDir()
	parseOutput = parseCmd.Flag("output", "Output directory").Short('o').Default(".").String()

	initCmd      = app.Command("init", "Write a freshly initialised model checkpoint.")
	initPath     = initCmd.Arg("checkpoint", "Checkpoint file").Required().String()
	initModelDim = initCmd.Flag("model-dim", "Model width").Default("128").Int()
	initHeads    = initCmd.Flag("heads", "Attention heads").Default("4").Int()
	initLayers   = initCmd.Flag("layers", "Attention layers").Default("3").Int()
	initFFDim    = initCmd.Flag("ff-dim", "Feed-forward width").Default("512").Int()
	initSimple   = initCmd.Flag("simple", "Rating head without variance").Bool()
	initSeed     = initCmd.Flag("seed", "Initialisation seed").Default("1").Uint64()

	predictCmd        = app.Command("predict", "Rate every Standard difficulty of a song folder.")
	predictCheckpoint = predictCmd.Arg("checkpoint", "Checkpoint file").Required().ExistingFile()
	predictFolder     = predictCmd.Arg("folder", "Song folder").Required().ExistingDir()

	datasetCmd        = app.Command("dataset", "Build the labelled dataset from ranked playlists.")
	datasetFolder     = datasetCmd.Arg("folder", "Folder to store the dataset").Required().String()
	datasetSSPlaylist = datasetCmd.Flag("ss-playlist", "Playlist of the ScoreSaber ranked maps").Required().ExistingFile()
	datasetBLPlaylist = datasetCmd.Flag("bl-playlist", "Playlist of the BeatLeader ranked maps").String()
	datasetUseBL      = datasetCmd.Flag("use-bl", "Use BeatLeader ranked maps and stars as well").Bool()
	datasetLimit      = datasetCmd.Flag("limit", "Limit of ranked maps, negative for all").Default("-1").Int()
	datasetSkipFetch  = datasetCmd.Flag("skip-fetch", "Only write samples for maps already in the index").Bool()
	datasetDownload   = datasetCmd.Flag("download", "Download maps missing from the song folder").Bool()

	evalCmd        = app.Command("eval", "Score a checkpoint on a folder of canonical samples.")
	evalCheckpoint = evalCmd.Arg("checkpoint", "Checkpoint file").Required().ExistingFile()
	evalFolder     = evalCmd.Arg("folder", "Folder of samples").Required().ExistingDir()
	evalBatchSize  = evalCmd.Flag("batch-size", "Sequences per batch").Default("16").Int()

	serveCmd        = app.Command("serve", "Serve the rating model over HTTP.")
	serveCheckpoint = serveCmd.Arg("checkpoint", "Checkpoint file").Required().ExistingFile()
	serveAddr       = serveCmd.Flag("addr", "Listen address, defaults to RATING_ADDR").String()
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	app.Version("0.1.0")
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	env := loadEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(func() { watchSignals(cancel) })

	var err error
	switch cmd {
	case parseCmd.FullCommand():
		err = runParse(*parseFolder, *parseOutput)
	case initCmd.FullCommand():
		err = runInit(*initPath)
	case predictCmd.FullCommand():
		err = runPredict(ctx, *predictCheckpoint, *predictFolder)
	case datasetCmd.FullCommand():
		err = runDataset(ctx, env)
	case evalCmd.FullCommand():
		err = runEval(ctx, *evalCheckpoint, *evalFolder, *evalBatchSize)
	case serveCmd.FullCommand():
		err = runServe(ctx, env, *serveCheckpoint)
	default:
		PanicF("unhandled command %q", cmd)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// openSong decodes a song folder. A partial failure is logged and the
// difficulties that decoded are still returned.
func openSong(folder string) (map[string]*beatmap.Beatmap, error) {
	maps, err := beatmap.DecodeFolder(folder)
	if err != nil {
		if len(maps) == 0 {
			return nil, err
		}
		log.Printf("%s: %v", folder, err)
	}
	return maps, nil
}

func runParse(folder, output string) error {
	maps, err := openSong(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(output, 0o777); err != nil {
		return err
	}
	for _, diff := range orderedDifficulties(maps) {
		path := filepath.Join(output, diff+".json")
		if err := tokens.WriteSample(path, maps[diff].Sample(0)); err != nil {
			return err
		}
		log.Printf("%s: %d events -> %s", diff, len(maps[diff].Elements), path)
	}
	return nil
}

func runInit(path string) error {
	cfg := model.DefaultConfig()
	cfg.ModelDim = *initModelDim
	cfg.Heads = *initHeads
	cfg.Layers = *initLayers
	cfg.FFDim = *initFFDim
	if *initSimple {
		cfg.Variant = model.Simple
	}
	m, err := model.New(cfg, *initSeed)
	if err != nil {
		return err
	}
	if err := m.SaveFile(path); err != nil {
		return err
	}
	log.Printf("wrote %s model to %s", cfg.Variant, path)
	return nil
}

func runPredict(ctx context.Context, checkpoint, folder string) error {
	m, err := model.LoadFile(checkpoint, nil)
	if err != nil {
		return err
	}
	maps, err := openSong(folder)
	if err != nil {
		return err
	}
	ratings, err := rateBeatmaps(ctx, m, maps)
	if err != nil {
		return err
	}
	for _, r := range ratings {
		if r.Variance != nil {
			fmt.Printf("%-10s %7.3f  var %.3f\n", r.Difficulty, r.Mean, *r.Variance)
		} else {
			fmt.Printf("%-10s %7.3f\n", r.Difficulty, r.Mean)
		}
	}
	return nil
}

func runDataset(ctx context.Context, env Env) error {
	store, err := OpenStore(env.DatasetDB)
	if err != nil {
		return err
	}
	defer store.Close()
	setFailStore(store)
	defer setFailStore(nil)

	report, err := BuildDataset(ctx, env, store, NewOnlineSource(env), DatasetOptions{
		Folder:     *datasetFolder,
		SSPlaylist: *datasetSSPlaylist,
		BLPlaylist: *datasetBLPlaylist,
		UseBL:      *datasetUseBL,
		Limit:      *datasetLimit,
		SkipFetch:  *datasetSkipFetch,
		Download:   *datasetDownload || env.Download,
	})
	if err != nil {
		return err
	}
	log.Printf("fetched %d (%d failed), wrote %d samples (%d failed)",
		report.Fetched, report.FetchFailed, report.Written, report.WriteFailed)
	return nil
}

func runEval(ctx context.Context, checkpoint, folder string, batchSize int) error {
	m, err := model.LoadFile(checkpoint, nil)
	if err != nil {
		return err
	}
	report, err := evaluate(ctx, m, folder, batchSize)
	if err != nil {
		return err
	}
	fmt.Printf("samples %d  nll %.4f  mae %.4f\n", report.Samples, report.NLL, report.MAE)
	return nil
}

func runServe(ctx context.Context, env Env, checkpoint string) error {
	m, err := model.LoadFile(checkpoint, nil)
	if err != nil {
		return err
	}
	addr := *serveAddr
	if addr == "" {
		addr = env.Addr
	}
	srv := &http.Server{Addr: addr, Handler: Router(m), ReadTimeout: 30 * time.Second, WriteTimeout: 2 * time.Minute}
	Run(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	log.Printf("listening on %s (Ctrl+C to stop)", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
