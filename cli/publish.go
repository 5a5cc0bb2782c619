package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/ikdata/dataset"
)

// PublishAction inserts the samples of an assembled dataset, by default the configured output, into MongoDB.
func PublishAction(c *cli.Context) (err error) {
	cfg, logger, err := fromContext(c)
	if err != nil {
		return err
	}
	path := cfg.Output
	if c.Args().Present() {
		path = c.Args().First()
	}
	mongoCfg := cfg.Mongo
	if c.IsSet(flagMongoURI) {
		mongoCfg.URI = c.String(flagMongoURI)
	}
	if c.IsSet(flagDatabase) {
		mongoCfg.Database = c.String(flagDatabase)
	}
	if c.IsSet(flagCollection) {
		mongoCfg.Collection = c.String(flagCollection)
	}

	publisher, err := dataset.NewMongoPublisher(
		c.Context, mongoCfg.URI, mongoCfg.Database, mongoCfg.Collection, mongoCfg.BatchSize, logger.Sublogger("mongo"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, publisher.Close(c.Context))
	}()

	n, err := publisher.Publish(c.Context, path, c.String(flagRunID))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "published %d samples from %s to %s.%s\n", n, path, mongoCfg.Database, mongoCfg.Collection)
	return err
}
