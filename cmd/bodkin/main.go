package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/config"
	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/hostabi"
	"github.com/23skdu/longbow-bodkin/internal/logger"
	"github.com/23skdu/longbow-bodkin/internal/metadata"
	"github.com/23skdu/longbow-bodkin/internal/model"
	"github.com/23skdu/longbow-bodkin/internal/payload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath   = flag.String("config", "", "Path to YAML config file")
	manifestPath = flag.String("manifest", "", "Path to model manifest JSON")
	payloadPath  = flag.String("payload", "", "Path to packed constants binary")
	deviceName   = flag.String("device", "", "Execution device: cpu, cuda or sim")
	inputBytes   = flag.Int("input-bytes", 64, "Size of the synthetic input tensor per input slot")
	metricsAddr  = flag.String("metrics", "", "Address to serve Prometheus metrics")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *manifestPath != "" {
		cfg.ManifestPath = *manifestPath
	}
	if *payloadPath != "" {
		cfg.PayloadPath = *payloadPath
	}
	if *deviceName != "" {
		cfg.Device = *deviceName
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logger.Log.Info("metrics serving", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Log.Error("metrics server stopped", "error", err)
		}
	}()

	man, err := metadata.LoadFile(cfg.ManifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}
	logger.Log.Info("manifest loaded", "name", man.Name,
		"inputs", len(man.Inputs), "outputs", len(man.Outputs), "constants", len(man.Constants))

	var section *payload.Section
	if cfg.MapPayload {
		section, err = payload.Map(cfg.PayloadPath)
	} else {
		section, err = payload.FromFile(cfg.PayloadPath)
	}
	if err != nil {
		log.Fatalf("Failed to load payload: %v", err)
	}
	defer section.Close()

	var rt device.Runtime
	switch cfg.Device {
	case "cuda":
		cr, err := device.NewCUDA(int32(cfg.DeviceIndex))
		if err != nil {
			log.Fatalf("Failed to initialize CUDA: %v", err)
		}
		rt = cr
	case "sim":
		rt = device.NewSim(int32(cfg.DeviceIndex))
	}

	table := hostabi.New()
	m, err := model.New(model.IdentityRunner{T: table}, model.Options{
		Dispatch: table,
		Device:   rt,
		Payload:  section,
	}, len(man.Inputs), len(man.Outputs), len(man.Constants))
	if err != nil {
		log.Fatalf("Failed to create model: %v", err)
	}
	defer m.Close()

	if err := m.BindManifest(man); err != nil {
		log.Fatalf("Failed to bind manifest: %v", err)
	}
	if err := m.LoadConstants(cfg.IsCPU()); err != nil {
		log.Fatalf("Failed to load constants: %v", err)
	}
	defer m.ConstantsMap().Close()

	inputs := make([]abi.TensorHandle, m.NumInputs())
	for i := range inputs {
		buf := make([]byte, *inputBytes)
		for j := range buf {
			buf[j] = byte(j)
		}
		h, st := table.CreateTensorFromBytes(buf, []int64{int64(len(buf))}, []int64{1}, 0, abi.DtypeUint8)
		if err := abi.Check(st, "CreateTensorFromBytes"); err != nil {
			log.Fatalf("Failed to build input tensor: %v", err)
		}
		inputs[i] = h
	}

	outputs := make([]abi.TensorHandle, m.NumOutputs())
	if err := m.Run(inputs, outputs, 0, 0); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if err := m.WaitForCompletion(); err != nil {
		log.Fatalf("Failed waiting for completion: %v", err)
	}

	for i, h := range outputs {
		name, _ := m.OutputName(i)
		shape, _, _, dtype, err := table.Describe(h)
		if err != nil {
			log.Fatalf("Failed to describe output %d: %v", i, err)
		}
		data, err := table.Bytes(h)
		if err != nil {
			log.Fatalf("Failed to read output %d: %v", i, err)
		}
		var sum uint64
		for _, b := range data {
			sum += uint64(b)
		}
		fmt.Printf("output %d %q: shape=%v dtype=%s bytes=%d checksum=%d\n",
			i, name, shape, dtype, len(data), sum)
		table.DeleteTensor(h)
	}

	logger.Log.Info("run complete", "device", cfg.Device, "live_tensors", table.Live())
}
