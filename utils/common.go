package utils

const (
	NODETOL = 1.e-12
	EPS     = 1.e-16
)
