package configuration

import "runtime"

type VidConfiguration struct {
	Workers int
}

func DefVidConfiguration() *VidConfiguration {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &VidConfiguration{
		Workers: workers,
	}
}
