package main

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Config     Config       `json:"config"`
	Model      string       `json:"model"`
	Params     int          `json:"params"`
	Nodes      int          `json:"nodes"`
	OrderLen   int          `json:"order_len"`
	History    []EpochStats `json:"history"`
	LastLoss   float64      `json:"last_loss"`
	EpochsDone int          `json:"epochs_done"`
}

// PredictRequest is the payload for /api/predict.
//
// Pixels are raw intensities 0..255, row-major, one per model input.
type PredictRequest struct {
	Pixels []int `json:"pixels"`
}

// PredictResponse carries the arg-max class and the softmax output.
type PredictResponse struct {
	Label int       `json:"label"`
	Probs []float64 `json:"probs"`
}
