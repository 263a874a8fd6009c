// Package oracle adapts external compressor binaries to the core.Oracle
// contract and carries the run's evaluation failure policy.
package oracle

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// WeightsEnvVar names the environment variable through which candidate
// weights reach the compressor. The binary (or its wrapper) owns whatever
// mechanism turns the weights into compressor state; the engine never learns
// about it.
const WeightsEnvVar = "WOP8_WEIGHTS"

// CommandConfig configures a Command oracle.
type CommandConfig struct {
	// Compressor is the path to the compressor binary. Required. Invoked as
	// `compressor <input> <output> [extra args] [weights arg]` per image.
	Compressor string

	// Decompressor is the path to the decompressor binary, invoked as
	// `decompressor <compressed> <reconstructed>`. Required when ComputeMAE
	// is set.
	Decompressor string

	// ExtraArgs are appended to every compressor invocation, e.g. the
	// lossless settings "--distance=0", "--effort=7".
	ExtraArgs []string

	// WeightsArg optionally passes the weights on the command line: every
	// "{weights}" occurrence expands to the comma-joined genes. The
	// WOP8_WEIGHTS variable is set regardless.
	WeightsArg string

	// WorkDir roots the per-candidate artifact directories. Empty means a
	// fresh temporary directory per evaluation.
	WorkDir string

	// KeepArtifacts leaves compressed and reconstructed files on disk after
	// the evaluation instead of removing the candidate directory.
	KeepArtifacts bool

	// ComputeMAE decompresses every image and reports the mean absolute
	// reconstruction error alongside the size.
	ComputeMAE bool
}

// Command scores weight vectors by running an external compressor over the
// corpus and summing the compressed artifact sizes. It is safe for concurrent
// use: evaluations of distinct vectors never share artifact directories.
type Command struct {
	cfg CommandConfig
}

// NewCommand validates cfg and returns the adapter.
func NewCommand(cfg CommandConfig) (*Command, error) {
	if cfg.Compressor == "" {
		return nil, errors.New(errors.ConfigurationInvalid, "compressor binary path is required")
	}
	if cfg.ComputeMAE && cfg.Decompressor == "" {
		return nil, errors.New(errors.ConfigurationInvalid, "reconstruction error requires a decompressor binary")
	}
	return &Command{cfg: cfg}, nil
}

// Evaluate compresses every corpus image under the candidate weights and
// aggregates sizes (and reconstruction error when configured). Any image
// failing to compress fails the whole evaluation; partial sums are never
// reported as fitness.
func (c *Command) Evaluate(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
	if len(corpus) == 0 {
		return core.Evaluation{}, errors.New(errors.EmptyCorpus, "no images to evaluate")
	}

	dir, cleanup, err := c.candidateDir(weights)
	if err != nil {
		return core.Evaluation{}, err
	}
	defer cleanup()

	logging.GetLogger().Debug(ctx, "evaluating %s over %d images", weights.Key(), len(corpus))

	weightsValue := joinGenes(weights)
	eval := core.Evaluation{PerImage: make([]core.ImageResult, 0, len(corpus))}
	var maeSum float64
	maeCount := 0

	for _, ref := range corpus {
		if err := errors.CheckContext(ctx, "evaluation"); err != nil {
			return core.Evaluation{}, err
		}

		result, err := c.compressImage(ctx, weightsValue, ref, dir)
		if err != nil {
			return core.Evaluation{}, err
		}

		eval.TotalBytes += result.Bytes
		if c.cfg.ComputeMAE {
			maeSum += result.MeanAbsErr
			maeCount++
		}
		eval.PerImage = append(eval.PerImage, result)
	}

	if maeCount > 0 {
		eval.MeanAbsErr = maeSum / float64(maeCount)
	}
	return eval, nil
}

// candidateDir prepares the artifact directory for one candidate and returns
// its cleanup function.
func (c *Command) candidateDir(weights core.Vector) (string, func(), error) {
	var dir string
	var err error
	if c.cfg.WorkDir == "" {
		dir, err = os.MkdirTemp("", weights.Key()+"-")
	} else {
		dir = filepath.Join(c.cfg.WorkDir, weights.Key())
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return "", nil, errors.Wrap(err, errors.OracleFailed, "creating candidate work directory")
	}

	cleanup := func() {}
	if !c.cfg.KeepArtifacts {
		cleanup = func() { os.RemoveAll(dir) }
	}
	return dir, cleanup, nil
}

// compressImage runs the compressor (and optionally the decompressor) for one
// corpus image.
func (c *Command) compressImage(ctx context.Context, weightsValue string, ref core.ImageRef, dir string) (core.ImageResult, error) {
	base := strings.TrimSuffix(ref.Name, filepath.Ext(ref.Name))
	compressed := filepath.Join(dir, base+".jxl")

	args := make([]string, 0, 3+len(c.cfg.ExtraArgs))
	args = append(args, ref.Path, compressed)
	args = append(args, c.cfg.ExtraArgs...)
	if c.cfg.WeightsArg != "" {
		args = append(args, strings.ReplaceAll(c.cfg.WeightsArg, "{weights}", weightsValue))
	}

	if err := c.run(ctx, c.cfg.Compressor, args, weightsValue, ref.Name, "compressor"); err != nil {
		return core.ImageResult{}, err
	}

	info, err := os.Stat(compressed)
	if err != nil {
		return core.ImageResult{}, errors.WithFields(
			errors.Wrap(err, errors.OracleFailed, "compressed artifact missing"),
			errors.Fields{"image": ref.Name},
		)
	}

	result := core.ImageResult{Name: ref.Name, Bytes: info.Size()}

	if c.cfg.ComputeMAE {
		reconstructed := filepath.Join(dir, "dec_"+ref.Name)
		if err := c.run(ctx, c.cfg.Decompressor, []string{compressed, reconstructed}, weightsValue, ref.Name, "decompressor"); err != nil {
			return core.ImageResult{}, err
		}

		mae, err := MeanAbsError(ref.Path, reconstructed)
		if err != nil {
			return core.ImageResult{}, errors.WithFields(
				errors.Wrap(err, errors.OracleFailed, "reconstruction comparison failed"),
				errors.Fields{"image": ref.Name},
			)
		}
		result.MeanAbsErr = mae
	}

	return result, nil
}

// run executes one binary with the weights in its environment, mapping
// failures onto structured errors.
func (c *Command) run(ctx context.Context, bin string, args []string, weightsValue, image, role string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), WeightsEnvVar+"="+weightsValue)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// A context kill surfaces as a process error; report the
		// cancellation, not the corpse.
		if ctxErr := errors.CheckContext(ctx, role); ctxErr != nil {
			return ctxErr
		}
		return errors.WithFields(
			errors.Wrap(err, errors.OracleFailed, role+" failed"),
			errors.Fields{
				"image":  image,
				"stderr": strings.TrimSpace(stderr.String()),
			},
		)
	}
	return nil
}

// joinGenes renders the weights for the side channel: comma-joined genes,
// e.g. "15,15,15,15,15,15,15,15".
func joinGenes(v core.Vector) string {
	genes := make([]string, core.GeneCount)
	for i, g := range v {
		genes[i] = strconv.Itoa(g)
	}
	return strings.Join(genes, ",")
}
