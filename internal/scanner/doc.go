// Package scanner reconciles the clip database with the files on
// disk. It walks the library directory up to two levels deep, indexes
// recorder-named mp4 files, removes rows for deleted files, and fans
// out ffmpeg probing and thumbnail generation over a worker pool.
//
// Change detection is poll based: a shallow stat of the root and its
// immediate subdirectories on an interval, cheap enough for network
// mounts where inotify is unreliable.
package scanner
