package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Laisky/knote/internal/web"
	"github.com/Laisky/knote/internal/web/note/controller"
	"github.com/Laisky/knote/internal/web/note/service"
	"github.com/Laisky/knote/library/config"
	"github.com/Laisky/knote/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `knote web server`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runAPI(ctx, config.LoadSettings(), gconfig.Shared.GetString("listen")); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// runAPI serves knote on addr until ctx is done
func runAPI(ctx context.Context, settings config.Settings, addr string) error {
	bk, err := setupBackends(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "setup backends")
	}
	defer bk.close()

	handler, err := newAPIHandler(settings, bk)
	if err != nil {
		return errors.Wrap(err, "new api handler")
	}

	return web.Run(ctx, addr, handler)
}

func newAPIHandler(settings config.Settings, bk *backends) (*gin.Engine, error) {
	svc, err := service.New(bk.store, bk.sink,
		service.WithRenderMarkdown(settings.RenderMarkdown),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new note service")
	}

	opts := []web.ServerOption{
		web.WithAllowedOrigins(settings.Web.AllowedOrigins...),
	}
	if settings.BlobType != config.BlobTypeMinio {
		opts = append(opts, web.WithLocalUploads(settings.UploadDir))
	}

	return web.NewServer(controller.New(svc), opts...)
}
