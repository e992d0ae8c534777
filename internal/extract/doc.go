// Package extract turns hearing page evidence into candidate stream
// descriptors.
//
// Each platform has an Extractor: ISVPExtractor for Senate committee pages
// served by the in-house ISVP player and YouTubeExtractor for House committee
// videos. Extractors never fail outright; internal problems are logged and
// produce an empty candidate list so one bad page cannot abort a batch.
package extract
