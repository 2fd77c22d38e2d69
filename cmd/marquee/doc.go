// Command marquee serves the movie catalog API and reaction relay, and offers
// terminal equivalents of the browse, detail and watch pages.
//
// Usage:
//
//	marquee serve                  run the HTTP API, relay and background tasks
//	marquee search <title>         search the catalog
//	marquee movie <imdb-id>        show a movie's details
//	marquee category <tag>         show a themed row
//	marquee home                   show every home page row as it loads
//	marquee check                  probe the metadata provider
//	marquee watch <imdb-id>        simulated playback with live reactions
//	marquee config show            print the effective configuration
package main
