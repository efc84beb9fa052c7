package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lumen/async"
	"lumen/bytecode"
	"lumen/compiler"
	"lumen/config"
	"lumen/dispatcher"
	"lumen/jit"
	"lumen/natives"
	"lumen/parser"
	"lumen/value"
	"lumen/vm"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path (optional; defaults are used if absent)")
	metricsAddr := flag.String("metrics", "", "Address to serve Prometheus /metrics on (e.g. :9090); empty disables it")
	noJIT := flag.Bool("no-jit", false, "Disable the method-JIT regardless of config")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: lumen [flags] <script.lum>")
	}
	scriptPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *noJIT {
		cfg.JIT.Enabled = false
	}

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", scriptPath, err)
	}

	log.Printf("Lumen")
	log.Printf("Script: %s", scriptPath)
	log.Printf("JIT: %v  AsyncPool: %d", cfg.JIT.Enabled, cfg.Async.DefaultTaskPoolSize)

	reg := prometheus.NewRegistry()

	natDispatcher := dispatcher.New()
	natives.RegisterAll(natDispatcher)

	asyncMetrics := async.NewMetrics()
	asyncMetrics.Register(reg)

	jitHook := jit.NewHook(cfg, reg)
	sched := vm.NewScheduler()
	shared := async.NewSharedState()

	var executor *async.Executor
	var machine *vm.VM
	executor = async.NewExecutor(cfg.Async.DefaultTaskPoolSize, func(chunk *bytecode.Chunk, globals map[string]value.Value) (value.Value, error) {
		sub := vm.New(cfg, globals, natDispatcher, executor, jitHook)
		return sub.Run(chunk, nil)
	})

	// spawn_task's globals snapshot is read from the top-level VM only
	// (natives have no handle on whichever VM is calling them — see
	// DESIGN.md) so the provider closes over `machine` once it's set below.
	natives.RegisterAsync(natDispatcher, executor, sched, shared, jitHook, func() map[string]value.Value {
		return machine.Globals()
	})

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Printf("metrics listening on %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	p := parser.NewParser(string(src))
	prog, err := p.Parse()
	if err != nil {
		log.Fatalf("parse error: %v", err)
	}

	chunk, err := compiler.CompileProgram(prog)
	if err != nil {
		log.Fatalf("compile error: %v", err)
	}
	if err := compiler.Verify(chunk); err != nil {
		log.Fatalf("bytecode verification failed: %v", err)
	}

	globals := make(map[string]value.Value)
	machine = vm.New(cfg, globals, natDispatcher, executor, jitHook)
	machine.AttachScheduler(sched)

	result, err := machine.Run(chunk, nil)
	if err == vm.ErrSuspended {
		// The top-level script itself awaited something not yet settled;
		// drive the scheduler to completion and pull the final result
		// back out under the context id the VM parked itself on.
		sched.RunSchedulerUntilComplete(0)
		var ok bool
		result, err, ok = sched.Result(machine.ContextID())
		if !ok {
			log.Fatalf("runtime error: execution context %s never completed", machine.ContextID())
		}
	}
	if err != nil {
		log.Fatalf("runtime error: %v", err)
	}
	log.Printf("=> %s", result.String())
}
