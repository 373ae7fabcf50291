package parser

import (
	"os"
	"time"

	"github.com/namsral/flag"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/memory"
	"submission-judge/internal/sandbox"
)

// Arguments configure both services. Every flag can also be set through the
// environment, e.g. -nsq-topic through NSQ_TOPIC.
type Arguments struct {
	ListenAddress string
	DatabaseConn  string

	QueueBackend         string
	ForceLocalMode       bool
	Workers              int
	SqsQueue             string
	SqsWaitTimeSeconds   int
	SqsVisibilityTimeout time.Duration

	NsqAddress string
	NsqChannel string
	NsqPort    int
	NsqTopic   string

	RedisAddress  string
	RedisPassword string
	JobRetention  time.Duration

	StorageBackend   string
	StorageBucket    string
	StorageLocalRoot string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioUseSSL      bool

	MaxConcurrentContainers int
	WorkRoot                string

	// Sandbox overrides, zero keeps the value of the environment profile.
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	CaseBudget     time.Duration
	MemoryLimit    string
	OutputLimit    string
	Cpus           float64
	PidsLimit      int64

	RateLimit  int64
	RateWindow time.Duration

	// Positional holds the arguments left after the flags.
	Positional []string
}

func ParseDefaultConfigurationArguments() Arguments {
	args, err := ParseArguments(os.Args[0], os.Args[1:])

	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	log.Info().Msgf("%+v parsed arguments", args.redacted())
	return args
}

func ParseArguments(name string, arguments []string) (Arguments, error) {
	args := Arguments{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&args.ListenAddress, "listen-address", ":8080", "address the api listens on")
	fs.StringVar(&args.DatabaseConn, "database-connection-string", "host=database user=root password=root port=54320 dbname=judge TimeZone=UTC", "")

	fs.StringVar(&args.QueueBackend, "queue-backend", "nsq", "local, nsq or sqs")
	fs.BoolVar(&args.ForceLocalMode, "force-local-mode", false, "run the queue and storage in process, for development")
	fs.IntVar(&args.Workers, "workers", 1, "number of jobs judged at once")
	fs.StringVar(&args.SqsQueue, "sqs-queue", "", "")
	fs.IntVar(&args.SqsWaitTimeSeconds, "sqs-wait-time-seconds", 20, "")
	fs.DurationVar(&args.SqsVisibilityTimeout, "sqs-visibility-timeout", time.Minute, "extended while a message is judged")

	fs.StringVar(&args.NsqAddress, "nsq-address", "nsqd", "")
	fs.StringVar(&args.NsqChannel, "nsq-channel", "main", "")
	fs.IntVar(&args.NsqPort, "nsq-port", 4150, "")
	fs.StringVar(&args.NsqTopic, "nsq-topic", "submissions", "")

	fs.StringVar(&args.RedisAddress, "redis-address", "redis:6379", "")
	fs.StringVar(&args.RedisPassword, "redis-password", "", "")
	fs.DurationVar(&args.JobRetention, "job-retention", 24*time.Hour, "how long finished jobs can be polled")

	fs.StringVar(&args.StorageBackend, "storage-backend", "s3", "local, s3 or minio")
	fs.StringVar(&args.StorageBucket, "storage-bucket", "judge-testcases", "")
	fs.StringVar(&args.StorageLocalRoot, "storage-local-root", "testcases", "")
	fs.StringVar(&args.MinioEndpoint, "minio-endpoint", "minio:9000", "")
	fs.StringVar(&args.MinioAccessKey, "minio-access-key", "", "")
	fs.StringVar(&args.MinioSecretKey, "minio-secret-key", "", "")
	fs.BoolVar(&args.MinioUseSSL, "minio-use-ssl", false, "")

	fs.IntVar(&args.MaxConcurrentContainers, "max-concurrent-containers", 5, "")
	fs.StringVar(&args.WorkRoot, "work-root", "", "directory holding the scratch directory of every attempt")

	fs.DurationVar(&args.CompileTimeout, "compile-timeout", 0, "")
	fs.DurationVar(&args.RunTimeout, "run-timeout", 0, "per test case")
	fs.DurationVar(&args.CaseBudget, "case-budget", 0, "for all test cases of a submission")
	fs.StringVar(&args.MemoryLimit, "memory-limit", "", "e.g. 256m")
	fs.StringVar(&args.OutputLimit, "output-limit", "", "captured stdout per test case, e.g. 1m")
	fs.Float64Var(&args.Cpus, "cpus", 0, "")
	fs.Int64Var(&args.PidsLimit, "pids-limit", 0, "")

	fs.Int64Var(&args.RateLimit, "rate-limit", 10, "submissions per principal per window")
	fs.DurationVar(&args.RateWindow, "rate-window", time.Minute, "")

	if err := fs.Parse(arguments); err != nil {
		return Arguments{}, errors.Wrap(err, "failed to parse flags")
	}

	args.Positional = fs.Args()

	if args.Workers < 1 {
		return Arguments{}, errors.Errorf("workers must be at least 1, got %d", args.Workers)
	}

	return args, nil
}

// ApplyProfile overrides the profile with every sandbox limit that was set.
func (a Arguments) ApplyProfile(profile *sandbox.Profile) error {
	if a.CompileTimeout > 0 {
		profile.CompileTimeout = a.CompileTimeout
	}

	if a.RunTimeout > 0 {
		profile.RunTimeout = a.RunTimeout
	}

	if a.CaseBudget > 0 {
		profile.CaseBudget = a.CaseBudget
	}

	if a.MemoryLimit != "" {
		limit, err := memory.Parse(a.MemoryLimit)

		if err != nil {
			return errors.Wrap(err, "invalid memory limit")
		}

		profile.Memory = limit
	}

	if a.OutputLimit != "" {
		limit, err := memory.Parse(a.OutputLimit)

		if err != nil {
			return errors.Wrap(err, "invalid output limit")
		}

		profile.OutputLimit = limit
	}

	if a.Cpus > 0 {
		profile.NanoCPUs = int64(a.Cpus * 1e9)
	}

	if a.PidsLimit > 0 {
		profile.PidsLimit = a.PidsLimit
	}

	return nil
}

func (a Arguments) redacted() Arguments {
	if a.RedisPassword != "" {
		a.RedisPassword = "***"
	}

	if a.MinioSecretKey != "" {
		a.MinioSecretKey = "***"
	}

	return a
}
