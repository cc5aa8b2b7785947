package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/internal/models"
	"seistt/pkg/config"
	"seistt/pkg/eikonal"
	"seistt/pkg/nonlinloc"
	"seistt/pkg/tracer"
	"seistt/pkg/velocity"
	"seistt/pkg/vtk"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "seistt.yaml", "Path to the YAML run configuration")
	writeDefaultConfig := flag.Bool("write-default-config", false, "Write a default configuration file to -config and exit")
	vtkDir := flag.String("vtk-dir", "", "Directory for VTK exports (overrides output.vtkDir)")
	flag.Parse()

	if *writeDefaultConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *vtkDir != "" {
		cfg.Output.VTKDir = *vtkDir
	}

	if len(cfg.Stations) == 0 {
		log.Fatalf("No stations configured in %s", *configPath)
	}
	if len(cfg.Sources) == 0 {
		log.Fatalf("No sources configured in %s", *configPath)
	}

	phase, err := velocity.ParsePhase(cfg.Solver.Phase)
	if err != nil {
		log.Fatalf("Invalid solver phase: %v", err)
	}

	backend, grid, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to build ray tracer backend: %v", err)
	}

	stations := make([]models.Station, len(cfg.Stations))
	receivers := make([]r3.Vec, len(cfg.Stations))
	for i, sc := range cfg.Stations {
		stations[i] = models.Station{Code: sc.Code, East: sc.East, North: sc.North, Depth: sc.Depth}
		receivers[i] = stations[i].Position()
	}

	sources := make([]models.Source, len(cfg.Sources))
	positions := make([]r3.Vec, len(cfg.Sources))
	for i, sc := range cfg.Sources {
		sources[i] = models.Source{Name: sc.Name, East: sc.East, North: sc.North, Depth: sc.Depth}
		positions[i] = sources[i].Position()
	}

	fmt.Println("================================")
	fmt.Println("SEISTT SEISMIC TRAVEL-TIME ENGINE")
	fmt.Printf("Model: %s, phase: %s, %d sources x %d stations\n",
		cfg.Model.Type, phase, len(sources), len(stations))
	fmt.Println("================================")

	startTime := time.Now()
	tables, err := tracer.ComputeParallel(backend, positions, receivers, phase, cfg.Solver.NumWorkers)
	if err != nil {
		log.Printf("Warning: some sources failed: %v", err)
	}
	fmt.Printf("Computed %d travel-time tables in %.2f seconds using %d workers\n\n",
		len(tables), time.Since(startTime).Seconds(), cfg.Solver.NumWorkers)

	for i, table := range tables {
		if table == nil {
			continue
		}
		fmt.Printf("Source %s (%.0f, %.0f, %.0f):\n",
			sourceName(sources[i], i), positions[i].X, positions[i].Y, positions[i].Z)
		for j, st := range stations {
			tt, err := table.Time(j)
			if err != nil {
				fmt.Printf("  %-12s outside model domain\n", st.Code)
				continue
			}
			fmt.Printf("  %-12s %8.4f s\n", st.Code, tt)
		}
	}

	if cfg.Output.VTKDir != "" {
		if err := exportVTK(cfg.Output.VTKDir, grid, backend, positions, phase, cfg.Output.Verbose); err != nil {
			log.Fatalf("VTK export failed: %v", err)
		}
	}
}

func sourceName(s models.Source, i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("source-%d", i)
}

// buildBackend instantiates the ray tracer variant the configuration
// selects. The returned grid is non-nil only for the grid3d variant and
// feeds the VTK velocity export.
func buildBackend(cfg *config.Config) (tracer.Backend, *velocity.Grid3D, error) {
	switch cfg.Model.Type {
	case "constant":
		model, err := velocity.NewConstant(cfg.Model.Constant.Vp, cfg.Model.Constant.Vs)
		if err != nil {
			return nil, nil, err
		}
		return tracer.NewConstant(model), nil, nil

	case "layered":
		var breakpoints []velocity.Breakpoint
		if len(cfg.Model.Layered.Breakpoints) > 0 {
			for _, bp := range cfg.Model.Layered.Breakpoints {
				breakpoints = append(breakpoints, velocity.Breakpoint{Depth: bp.Depth, Vp: bp.Vp, Vs: bp.Vs})
			}
		} else {
			breakpoints = velocity.DefaultEarthBreakpoints()
		}
		model, err := velocity.NewLayered(breakpoints)
		if err != nil {
			return nil, nil, err
		}
		solver := tracer.NewDirectSolver()
		if cfg.Model.Layered.LayerStep > 0 {
			solver.LayerStep = cfg.Model.Layered.LayerStep
		}
		return tracer.NewLayered(model, solver), nil, nil

	case "grid3d":
		if cfg.Model.Grid3D.PHeader == "" {
			return nil, nil, fmt.Errorf("grid3d model needs model.grid3d.pHeader")
		}
		grids := make(map[velocity.Phase]*velocity.Grid3D)
		pGrid, err := nonlinloc.ReadModel(cfg.Model.Grid3D.PHeader)
		if err != nil {
			return nil, nil, err
		}
		grids[velocity.PhaseP] = pGrid
		if cfg.Model.Grid3D.SHeader != "" {
			sGrid, err := nonlinloc.ReadModel(cfg.Model.Grid3D.SHeader)
			if err != nil {
				return nil, nil, err
			}
			grids[velocity.PhaseS] = sGrid
		}
		backend, err := eikonal.NewTracer(grids)
		if err != nil {
			return nil, nil, err
		}
		return backend, pGrid, nil
	}
	return nil, nil, fmt.Errorf("unknown model type %q (want constant, layered or grid3d)", cfg.Model.Type)
}

// exportVTK writes the velocity grid and each source's arrival-time
// volume for external visual QC.
func exportVTK(dir string, grid *velocity.Grid3D, backend tracer.Backend, sources []r3.Vec, phase velocity.Phase, verbose bool) error {
	fm, ok := backend.(*eikonal.Tracer)
	if !ok {
		return fmt.Errorf("VTK export requires the grid3d model type")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating VTK directory: %w", err)
	}

	velocityPath := filepath.Join(dir, fmt.Sprintf("velocity_%s.vtk", phase))
	if err := vtk.WriteVelocity(velocityPath, grid); err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Exported velocity volume to %s\n", velocityPath)
	}

	for i, src := range sources {
		field, err := fm.Volume(src, phase)
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("arrivals_%s_source%03d.vtk", phase, i))
		if err := vtk.WriteStructuredPoints(path, "traveltime", field.Indexer(), field.Times()); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("Exported arrival-time volume to %s\n", path)
		}
	}
	return nil
}
