package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/mickamy/hasone/dynamo"
	"github.com/mickamy/hasone/hasone"
	"github.com/mickamy/hasone/internal/schema"
	"github.com/mickamy/hasone/mongodb"
	"github.com/mickamy/hasone/orm"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "hasone:", err)
		os.Exit(1)
	}
}

type options struct {
	schema   string
	driver   string
	dsn      string
	database string
	prefix   string
	seed     bool
	owner    string
	id       string
	relation string
	op       string
	data     string
	childID  string
	verbose  bool
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("hasone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.schema, "schema", "", "HCL schema file (required)")
	fs.StringVar(&o.driver, "driver", "memory", "storage driver: memory, mysql, postgres, dynamodb or mongodb")
	fs.StringVar(&o.dsn, "dsn", "", "data source name or MongoDB URI")
	fs.StringVar(&o.database, "database", "hasone", "MongoDB database name")
	fs.StringVar(&o.prefix, "table-prefix", "", "DynamoDB table name prefix")
	fs.BoolVar(&o.seed, "seed", false, "create the schema's records before running the operation (default true for -driver memory)")
	fs.StringVar(&o.owner, "owner", "", "owner table (required)")
	fs.StringVar(&o.id, "id", "", "owner id (required)")
	fs.StringVar(&o.relation, "relation", "", "relation name (required)")
	fs.StringVar(&o.op, "op", "get", "get, set, build, get-or-create, create, create-or-update, update or remove")
	fs.StringVar(&o.data, "data", "{}", "JSON object passed to the operation")
	fs.StringVar(&o.childID, "child-id", "", "id of the child record for -op set")
	fs.BoolVar(&o.verbose, "v", false, "log at debug level")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err //nolint:wrapcheck // flag already printed it
	}
	if o.version {
		return &o, nil
	}
	if !flagSet(fs, "seed") {
		o.seed = o.driver == "memory"
	}
	for name, v := range map[string]string{"schema": o.schema, "owner": o.owner, "id": o.id, "relation": o.relation} {
		if v == "" {
			return nil, fmt.Errorf("-%s flag is required", name)
		}
	}
	return &o, nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, "hasone", version)
		return nil
	}

	logger, err := newLogger(o.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	file, err := schema.Load(o.schema)
	if err != nil {
		return err
	}

	driver, closeDriver, err := openDriver(ctx, o, logger)
	if err != nil {
		return err
	}
	defer closeDriver()

	m := orm.New(driver, orm.WithLogger(logger)).Use(hasone.Middleware)
	if !o.seed {
		file.Records = nil
	}
	if _, err := file.Apply(ctx, m); err != nil {
		return err
	}

	rec, err := execute(ctx, m, o)
	if err != nil {
		return err
	}
	logger.Debug("operation done", zap.String("op", o.op), zap.String("relation", o.relation))

	var fields orm.Fields
	if rec != nil {
		fields = rec.Fields()
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fields) //nolint:wrapcheck // pass through
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment() //nolint:wrapcheck // pass through
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build() //nolint:wrapcheck // pass through
}

func openDriver(ctx context.Context, o *options, logger *zap.Logger) (orm.Driver, func(), error) {
	switch o.driver {
	case "memory":
		return orm.NewMemoryDriver(), func() {}, nil
	case "mysql", "postgres":
		name := o.driver
		if name == "postgres" {
			name = "pgx"
		}
		db, err := orm.Open(name, o.dsn)
		if err != nil {
			return nil, nil, err
		}
		if o.verbose {
			db = db.Debug(orm.NewZapLogger(logger))
		}
		return orm.NewSQLDriver(db), func() { _ = db.Close() }, nil
	case "dynamodb":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(cfg)
		return dynamo.New(client, dynamo.WithTablePrefix(o.prefix)), func() {}, nil
	case "mongodb":
		d, client, err := mongodb.Connect(ctx, o.dsn, o.database)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", o.driver)
	}
}

func execute(ctx context.Context, m *orm.Modeller, o *options) (*orm.Record, error) {
	ownerModel, ok := m.Model(o.owner)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", o.owner)
	}
	owner, err := ownerModel.FindOne(ctx, orm.Fields{orm.PrimaryKey: parseID(o.id)})
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: %s %s", orm.ErrNotFound, o.owner, o.id)
	}

	if o.op == "get" {
		rel, err := hasone.Of(owner, o.relation)
		if err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		return rel.Get(ctx) //nolint:wrapcheck // pass through
	}

	rel, err := hasone.MutableOf(owner, o.relation)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	data, err := parseData(o.data)
	if err != nil {
		return nil, err
	}

	switch o.op {
	case "set":
		if o.childID == "" {
			return nil, errors.New("-child-id flag is required for -op set")
		}
		child, err := rel.Model().FindOne(ctx, orm.Fields{orm.PrimaryKey: parseID(o.childID)})
		if err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		if child == nil {
			return nil, fmt.Errorf("%w: %s %s", orm.ErrNotFound, rel.Model().TableName(), o.childID)
		}
		return child, rel.Set(ctx, child)
	case "build":
		return rel.Build(data) //nolint:wrapcheck // pass through
	case "get-or-create":
		return rel.GetOrCreate(ctx, data) //nolint:wrapcheck // pass through
	case "create":
		return rel.Create(ctx, data) //nolint:wrapcheck // pass through
	case "create-or-update":
		return rel.CreateOrUpdate(ctx, data) //nolint:wrapcheck // pass through
	case "update":
		return rel.Update(ctx, data) //nolint:wrapcheck // pass through
	case "remove":
		return rel.Remove(ctx) //nolint:wrapcheck // pass through
	default:
		return nil, fmt.Errorf("unknown op %q", o.op)
	}
}

// parseID returns s as an int64 when it is a decimal integer.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func parseData(s string) (orm.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse -data: %w", err)
	}
	data := make(orm.Fields, len(raw))
	for k, v := range raw {
		data[k] = fromJSON(v)
	}
	return data, nil
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = fromJSON(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = fromJSON(t[k])
		}
		return t
	default:
		return v
	}
}
