// Package fmi provides the model variable registry, descriptor generation and
// dispatch runtime of gofmu.
//
// # Reading Guide
//
// Start with these files to understand the core:
//   - variable.go: variable kinds (Real, Integer, Boolean, String, Enumeration) and the Registered wrapper
//   - schema.go: causality/variability/initial rules and start-value requirements
//   - registry.go: ordered registration, value reference assignment, link validation
//   - descriptor.go: modelDescription.xml generation (FMI 2 and FMI 3 layouts in descriptor_fmi*.go)
//   - instance.go: the per-instance state machine driving a Model
//
// # Life Cycle
//
// A Model declares its variables into a Registry in Define. Instantiate binds
// each registered variable to an Accessor, either the declaration's Bind or a
// struct field tagged `fmi:"<name>"`, and freezes the registry. The value
// references written to the descriptor are the ones Get and Set accept:
//
//	Instantiated → InitializationMode → Initialized → Stepping ⟲ → Terminated
//	                                                     ↘ Failed (step returned error or fatal)
//
// # Sub-packages
//
//   - fmi/modelfile/: declarative model definitions in YAML or HCL
//   - fmi/trace/: per-step recording and summaries
//   - fmi/host/: reference host running one or many instances through an experiment
//
// Example models live under models/ and are listed by models.Names.
package fmi
