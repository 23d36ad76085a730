// Copyright (C) MongoDB, Inc. 2023-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command bulkwrite executes a file of extended JSON operation descriptions, one per line, as a
// single bulk write.
//
//	bulkwrite [-config file.toml] [-uri mongodb://...] [-ns db.coll] [-ordered=true] [-w majority] [-dry-run] [-metrics] [-v] ops.jsonl
//
// With -bench it instead runs the batching benchmarks against the in-memory server and prints
// their throughput as JSON.
//
//	bulkwrite -bench [-trials n]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/pretty"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ikmak/mongo-bulkwrite/benchmark"
	"github.com/ikmak/mongo-bulkwrite/bulk"
	"github.com/ikmak/mongo-bulkwrite/bulk/options"
	"github.com/ikmak/mongo-bulkwrite/internal/metrics"
	"github.com/ikmak/mongo-bulkwrite/transport/memtransport"
	"github.com/ikmak/mongo-bulkwrite/transport/mongotransport"
)

const maxLineSize = 48 * 1024 * 1024

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bulkwrite", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "TOML config file")
	uri := fs.String("uri", "", "connection string of the target deployment")
	ns := fs.String("ns", "", "target namespace, db.collection")
	ordered := fs.Bool("ordered", true, "stop at the first write error")
	w := fs.String("w", "", "write concern w value: a number or majority")
	dryRun := fs.Bool("dry-run", false, "execute against an in-memory server")
	withMetrics := fs.Bool("metrics", false, "print counters in Prometheus text format after the result")
	verbose := fs.Bool("v", false, "log every batch")
	bench := fs.Bool("bench", false, "run the benchmarks and print their results")
	trials := fs.Int("trials", 0, "with -bench, run each case this many times instead of for its standard runtime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bench {
		return runBenchmarks(ctx, stdout, stderr, *trials)
	}

	cfg := defaultConfig()
	if *configFile != "" {
		if err := loadConfigFile(&cfg, *configFile); err != nil {
			return err
		}
	}
	if err := loadEnv(&cfg, ".env"); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "uri":
			cfg.URI = *uri
		case "ns":
			cfg.Namespace = *ns
		case "ordered":
			cfg.Ordered = *ordered
		case "w":
			cfg.W = *w
		}
	})
	if *verbose {
		cfg.LogLevel = "debug"
	}

	namespace, err := bulk.ParseNamespace(cfg.Namespace)
	if err != nil {
		return errors.Wrap(err, "invalid -ns")
	}
	wc, err := parseW(cfg.W)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(stderr)
	opts := options.BulkWrite().SetOrdered(cfg.Ordered).SetLogger(log)
	if cfg.LogLevel != "" {
		opts.SetComponentLevel(options.LogComponentAll, cfg.LogLevel)
		log.SetLevel(logrus.TraceLevel)
	}
	if cfg.MaxConcurrency > 0 {
		opts.SetMaxConcurrency(cfg.MaxConcurrency)
	}

	fileName := "-"
	if fs.NArg() > 0 {
		fileName = fs.Arg(0)
	}
	in := stdin
	if fileName != "-" {
		f, err := os.Open(fileName)
		if err != nil {
			return errors.Wrapf(err, "cannot open file (%s)", fileName)
		}
		defer f.Close()
		in = f
	}

	var transport bulk.Transport
	limits := cfg.Limits
	if *dryRun || cfg.URI == "" {
		server := memtransport.New(cfg.Limits)
		transport = server
	} else {
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.URI))
		if err != nil {
			return errors.Wrap(err, "connecting")
		}
		defer func() { _ = client.Disconnect(ctx) }()

		mt := mongotransport.New(client)
		negotiated, err := mt.Limits(ctx)
		if err != nil {
			return err
		}
		limits = mergeLimits(negotiated, cfg.Limits)
		transport = mt
	}

	bo, err := bulk.New(namespace, transport, limits, opts)
	if err != nil {
		return err
	}
	if err = readOperations(in, bo); err != nil {
		return err
	}

	res, execErr := bo.Execute(ctx, wc)
	if res != nil {
		if err = printResult(stdout, res); err != nil {
			return err
		}
	}
	if *withMetrics {
		metrics.WritePrometheus(stdout)
	}
	return execErr
}

func runBenchmarks(ctx context.Context, stdout, stderr io.Writer, trials int) error {
	results, runErr := benchmark.RunAll(ctx, stderr, trials)

	var perf []interface{}
	for _, res := range results {
		out, err := res.PerfFormat()
		if err != nil {
			return errors.Wrap(err, res.Name)
		}
		perf = append(perf, out...)
	}
	b, err := json.Marshal(perf)
	if err != nil {
		return errors.Wrap(err, "encoding benchmark results")
	}
	if _, err = stdout.Write(pretty.Pretty(b)); err != nil {
		return err
	}
	return runErr
}

// readOperations appends every non-blank line of r to bo.
func readOperations(r io.Reader, bo *bulk.BulkOperation) error {
	lineNumber := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}

		var desc bson.D
		if err := bson.UnmarshalExtJSON([]byte(line), false, &desc); err != nil {
			return errors.Wrapf(err, "error parsing line %d", lineNumber)
		}
		if err := bo.Raw(desc); err != nil {
			return errors.Wrapf(err, "line %d", lineNumber)
		}
	}

	return scanner.Err()
}

func printResult(w io.Writer, res *bulk.BulkWriteResult) error {
	b, err := bson.MarshalExtJSON(res, false, false)
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}
	_, err = w.Write(pretty.Pretty(b))
	return err
}

// mergeLimits returns the negotiated limits, lowered by any configured limit.
func mergeLimits(negotiated, configured bulk.Limits) bulk.Limits {
	if configured.MaxBSONObjectSize > 0 && (negotiated.MaxBSONObjectSize == 0 || configured.MaxBSONObjectSize < negotiated.MaxBSONObjectSize) {
		negotiated.MaxBSONObjectSize = configured.MaxBSONObjectSize
	}
	if configured.MaxWriteBatchSize > 0 && (negotiated.MaxWriteBatchSize == 0 || configured.MaxWriteBatchSize < negotiated.MaxWriteBatchSize) {
		negotiated.MaxWriteBatchSize = configured.MaxWriteBatchSize
	}
	return negotiated
}
