package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jacktea/mofs/pkg/backend/provider"
	"github.com/jacktea/mofs/pkg/backend/sandbox"
	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/gc"
	"github.com/jacktea/mofs/pkg/mofs"
	"github.com/jacktea/mofs/pkg/native"
	"github.com/jacktea/mofs/pkg/server/httpapi"
	"github.com/jacktea/mofs/pkg/server/middleware"
)

func appContext() (context.Context, *mofs.Fs) {
	return application.ctx, application.fs
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <dir>",
		Short: "List directory entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return doList(ctx, f, cmd.OutOrStdout(), args[0])
		},
	}
}

func newCatCmd() *cobra.Command {
	var offset, size int64
	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the file contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			opts := mofs.ReadOptions{Offset: offset}
			if size >= 0 {
				opts.Size = &size
			}
			return doCat(ctx, f, cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "start offset (negative counts from the end)")
	cmd.Flags().Int64Var(&size, "size", -1, "bytes to read (-1 reads to the end)")
	return cmd
}

func newPutCmd() *cobra.Command {
	var appendMode bool
	cmd := &cobra.Command{
		Use:   "put <destination>",
		Short: "Write stdin to the destination path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return doPut(ctx, f, args[0], cmd.InOrStdin(), appendMode)
		},
	}
	cmd.Flags().BoolVar(&appendMode, "append", false, "append instead of replacing")
	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print the stat record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			st, err := f.Stat(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <dir>",
		Short: "Create a directory and its parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return f.CreateDir(ctx, args[0])
		},
	}
}

func newRmCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return f.DeleteFile(ctx, args[0], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete directories and their contents")
	return cmd
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return f.RenameFile(ctx, args[0], args[1])
		},
	}
}

func newChmodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <mode> <path>",
		Short: "Change file mode bits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return doChmod(ctx, f, args[1], args[0])
		},
	}
}

func newMimeCmd() *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "mime <path|ext|type>",
		Short: "Look up the MIME type of a path or extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			lookup := f.GetMimeType
			if reverse {
				lookup = f.GetExtensionForMimeType
			}
			v, ok, err := lookup(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no mapping for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "map a MIME type to its extension")
	return cmd
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the well-known directories as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f := appContext()
			return printJSON(cmd.OutOrStdout(), f.Paths())
		},
	}
}

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <path>",
		Short: "Read a file into a blob and print its blob URL",
		Long:  "The blob is left allocated so the URL stays resolvable while the backend persists it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			b, err := f.ReadFile(ctx, args[0], mofs.ReadOptions{})
			if err != nil {
				return err
			}
			u, err := f.GetBlobURL(b)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "hash <path>",
		Short: "Print the hex digest of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return withFile(ctx, f, args[0], func(b *blob.Blob) error {
				sum, err := f.GetBlobHash(ctx, b, algorithm)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&algorithm, "alg", "sha256", "digest: md5|sha1|sha256")
	return cmd
}

func newHmacCmd() *cobra.Command {
	var algorithm, key string
	cmd := &cobra.Command{
		Use:   "hmac <path>",
		Short: "Print the hex HMAC of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			rawKey, err := hex.DecodeString(key)
			if err != nil {
				return fmt.Errorf("key must be hex: %w", err)
			}
			return withFile(ctx, f, args[0], func(b *blob.Blob) error {
				sum, err := f.GetBlobHmac(ctx, b, algorithm, rawKey)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&algorithm, "alg", "sha256", "digest: md5|sha1|sha256")
	cmd.Flags().StringVar(&key, "key", "", "hex-encoded key")
	return cmd
}

func newCryptCmd() *cobra.Command {
	var algorithm, key, iv string
	var decrypt bool
	cmd := &cobra.Command{
		Use:   "crypt <source> <destination>",
		Short: "Encrypt or decrypt a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			rawKey, err := hex.DecodeString(key)
			if err != nil {
				return fmt.Errorf("key must be hex: %w", err)
			}
			rawIV, err := hex.DecodeString(iv)
			if err != nil {
				return fmt.Errorf("iv must be hex: %w", err)
			}
			dir := mofs.Encrypt
			if decrypt {
				dir = mofs.Decrypt
			}
			return transform(ctx, f, args[0], args[1], func(b *blob.Blob) (*blob.Blob, error) {
				return f.CryptBlob(ctx, b, algorithm, dir, rawKey, rawIV)
			})
		},
	}
	cmd.Flags().StringVar(&algorithm, "alg", "aes-cbc", "cipher")
	cmd.Flags().StringVar(&key, "key", "", "hex-encoded key")
	cmd.Flags().StringVar(&iv, "iv", "", "hex-encoded IV")
	cmd.Flags().BoolVarP(&decrypt, "decrypt", "d", false, "decrypt instead of encrypt")
	return cmd
}

type imageFlags struct {
	width, height float64
	fill          bool
	encoding      string
	quality       float64
}

func (o *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.width, "max-width", 0, "bounding box width")
	cmd.Flags().Float64Var(&o.height, "max-height", 0, "bounding box height")
	cmd.Flags().BoolVar(&o.fill, "fill", false, "cover the box and center-crop")
	cmd.Flags().StringVar(&o.encoding, "encoding", "jpeg", "output encoding: jpeg|png|webp")
	cmd.Flags().Float64Var(&o.quality, "quality", -1, "quality in [0,1] (-1 uses the maximum)")
}

func (o *imageFlags) args() mofs.ResizeImageArgs {
	a := mofs.ResizeImageArgs{
		MaxWidth:  o.width,
		MaxHeight: o.height,
		Fill:      o.fill,
		Encoding:  native.Encoding(o.encoding),
	}
	if o.quality >= 0 {
		q := o.quality
		a.Quality = &q
	}
	return a
}

func newResizeCmd() *cobra.Command {
	var opts imageFlags
	cmd := &cobra.Command{
		Use:   "resize <source> <destination>",
		Short: "Fit an image into a bounding box",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return transform(ctx, f, args[0], args[1], func(b *blob.Blob) (*blob.Blob, error) {
				return f.ResizeImage(ctx, b, opts.args())
			})
		},
	}
	opts.register(cmd)
	return cmd
}

func newThumbnailCmd() *cobra.Command {
	var opts imageFlags
	cmd := &cobra.Command{
		Use:   "thumbnail <source> <destination>",
		Short: "Render a thumbnail of an image or video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			return transform(ctx, f, args[0], args[1], func(b *blob.Blob) (*blob.Blob, error) {
				out, err := f.CreateThumbnail(ctx, b, opts.args())
				if err == nil && out == nil {
					err = fmt.Errorf("%s is neither an image nor a video", args[0])
				}
				return out, err
			})
		},
	}
	opts.register(cmd)
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print files handed to the app until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			ch, err := f.OpenFile().Channel(ctx, 16)
			if err != nil {
				return err
			}
			for ev := range ch {
				fmt.Fprintln(cmd.OutOrStdout(), ev.URL)
			}
			return nil
		},
	}
}

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove stale staged files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, f := appContext()
			count, err := doGC(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gc removed %d files\n", count)
			return nil
		},
	}
}

func newServeContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-content",
		Short: "Serve provider blobs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := contentServeOptions{
				Addr:       viper.GetString("serve_content.addr"),
				APIKey:     viper.GetString("serve_content.api_key"),
				RateLimit:  viper.GetInt("serve_content.rate_limit"),
				RateWindow: viper.GetDuration("serve_content.rate_window"),
				Metrics:    viper.GetBool("serve_content.metrics"),
			}
			return runServeContent(application.ctx, application.fs, opts)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("api-key", "", "require API key (X-API-Key or Bearer token)")
	cmd.Flags().Int("rate-limit", 0, "requests allowed per rate window (0 disables)")
	cmd.Flags().Duration("rate-window", time.Second, "rate limit window")
	cmd.Flags().Bool("metrics", true, "serve Prometheus metrics on /metrics")
	bindConfig("serve_content.addr", cmd.Flags().Lookup("addr"))
	bindConfig("serve_content.api_key", cmd.Flags().Lookup("api-key"))
	bindConfig("serve_content.rate_limit", cmd.Flags().Lookup("rate-limit"))
	bindConfig("serve_content.rate_window", cmd.Flags().Lookup("rate-window"))
	bindConfig("serve_content.metrics", cmd.Flags().Lookup("metrics"))
	return cmd
}

type contentServeOptions struct {
	Addr       string
	APIKey     string
	RateLimit  int
	RateWindow time.Duration
	Metrics    bool
}

func runServeContent(ctx context.Context, f *mofs.Fs, opt contentServeOptions) error {
	pv, ok := f.Provider()
	if !ok {
		return errors.New("serve-content requires the provider backend")
	}
	backend, ok := pv.(*provider.Backend)
	if !ok {
		return fmt.Errorf("unsupported provider %T", pv)
	}
	srv := &httpapi.Server{
		Blobs:     backend.Blobs(),
		Authority: backend.Authority(),
		Log:       application.log.WithName("content"),
		Opts:      httpapi.Options{APIKey: opt.APIKey},
	}
	if opt.RateLimit > 0 {
		srv.Opts.RateLimit = middleware.RateLimitOptions{Requests: opt.RateLimit, Window: opt.RateWindow}
	}
	if opt.Metrics {
		srv.Gatherer = application.registry
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		application.log.Info("serving content", "addr", opt.Addr, "authority", srv.Authority)
		return srv.Start(ctx, opt.Addr)
	})
	g.Go(func() error {
		ch, err := f.OpenFile().Channel(ctx, 16)
		if err != nil {
			return err
		}
		for ev := range ch {
			application.log.Info("file handed to app", "url", ev.URL)
		}
		return nil
	})
	return g.Wait()
}

func doList(ctx context.Context, f *mofs.Fs, w io.Writer, dir string) error {
	names, err := f.ListDir(ctx, dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		st, err := f.Stat(ctx, path.Join(dir, name))
		if err != nil {
			return err
		}
		switch {
		case st.Dir:
			fmt.Fprintf(w, "%s/\n", name)
		default:
			fmt.Fprintf(w, "%s\t%d\n", name, st.Size)
		}
	}
	return nil
}

func doCat(ctx context.Context, f *mofs.Fs, w io.Writer, p string, opts mofs.ReadOptions) error {
	b, err := f.ReadFile(ctx, p, opts)
	if err != nil {
		return err
	}
	defer b.Close()
	data, err := f.ReadBlobBytes(ctx, b)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func doPut(ctx context.Context, f *mofs.Fs, dst string, r io.Reader, appendMode bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if appendMode {
		return f.AppendBinaryFile(ctx, dst, data)
	}
	return f.WriteBinaryFile(ctx, dst, data)
}

func doChmod(ctx context.Context, f *mofs.Fs, p, modeStr string) error {
	value, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid mode %s", modeStr)
	}
	return f.Chmod(ctx, p, uint32(value))
}

func doGC(ctx context.Context, f *mofs.Fs) (int, error) {
	if pv, ok := f.Provider(); ok {
		if b, ok := pv.(*provider.Backend); ok {
			return b.Sweep(ctx)
		}
	}
	if sb, ok := f.Sandbox(); ok {
		if b, ok := sb.(*sandbox.Backend); ok {
			s := gc.NewSweeper(gc.Options{
				FS:     b.FS(),
				Dirs:   sandboxDirs,
				MaxAge: viper.GetDuration("gc.max_age"),
				Logger: application.log.WithName("gc"),
			})
			return s.Sweep(ctx)
		}
	}
	return 0, errors.New("backend does not support garbage collection")
}

// withFile reads p into a blob for the duration of fn.
func withFile(ctx context.Context, f *mofs.Fs, p string, fn func(*blob.Blob) error) error {
	b, err := f.ReadFile(ctx, p, mofs.ReadOptions{})
	if err != nil {
		return err
	}
	return blob.With(b, fn)
}

// transform reads src, applies fn and writes the result to dst.
func transform(ctx context.Context, f *mofs.Fs, src, dst string, fn func(*blob.Blob) (*blob.Blob, error)) error {
	return withFile(ctx, f, src, func(in *blob.Blob) error {
		out, err := fn(in)
		if err != nil {
			return err
		}
		return blob.With(out, func(out *blob.Blob) error {
			return f.WriteFile(ctx, dst, out)
		})
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
