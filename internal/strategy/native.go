package strategy

// Symbols every native strategy library must export:
//
//	char *initial_move;
//	char *strategy(const char *opponent_move);
//
// The library is loaded into this process, so a crash inside it takes the
// whole process down. Loading the same path twice yields the same mapped
// image, so globals inside a library are shared between its handles.
const (
	nativeInitialSymbol  = "initial_move"
	nativeStrategySymbol = "strategy"
)
