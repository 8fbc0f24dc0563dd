// Package services implements the driving port interfaces.
// Services contain the retrieval logic and orchestrate
// calls to driven ports (adapters).
//
// A search request flows through access derivation, optional HyDE
// expansion, concurrent lexical and vector retrieval, rank fusion and an
// optional rerank stage.
package services
