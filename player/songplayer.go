package player

import "github.com/squinkylabs/seq4"

// SongPlayer plays the four tracks of a song in lock-step: every update
// advances all the tracks to the same metric time, under a single
// acquisition of the song lock.
type SongPlayer struct {
	song       *seq4.Song
	tracks     [seq4.NumTracks]TrackPlayer
	lockMisses int
}

func NewSongPlayer(song *seq4.Song) *SongPlayer {
	p := &SongPlayer{song: song}
	for i := range p.tracks {
		p.tracks[i].init(song, i)
	}
	return p
}

// SetSong binds all the track players to song and hard resets them.
func (p *SongPlayer) SetSong(song *seq4.Song) {
	p.song = song
	for i := range p.tracks {
		p.tracks[i].SetSong(song, i)
	}
}

func (p *SongPlayer) Song() *seq4.Song { return p.song }

// Track returns the player of track i, which must be in 0..3.
func (p *SongPlayer) Track(i int) *TrackPlayer { return &p.tracks[i] }

// SetNotify sets the Notify callback of every track player.
func (p *SongPlayer) SetNotify(f func(track int, n Notice)) {
	for i := range p.tracks {
		p.tracks[i].Notify = f
	}
}

// UpdateToMetricTime advances all the tracks to now. If the song is being
// edited, no events are walked during this update, but notes that ended are
// still released.
func (p *SongPlayer) UpdateToMetricTime(now, metricTimePerClock float64, running bool) {
	if p.song == nil || !p.song.TryLock() {
		if p.song != nil {
			p.lockMisses++
		}
		for i := range p.tracks {
			p.tracks[i].updateUnlocked(now, running)
		}
		return
	}
	defer p.song.Unlock()
	for i := range p.tracks {
		p.tracks[i].updateLocked(now, metricTimePerClock, running)
	}
}

// LockMisses returns the number of updates skipped because the song lock was
// busy, and clears the count.
func (p *SongPlayer) LockMisses() int {
	ret := p.lockMisses
	p.lockMisses = 0
	return ret
}

func (p *SongPlayer) UpdateSampleCount(samples int) {
	for i := range p.tracks {
		p.tracks[i].UpdateSampleCount(samples)
	}
}

// Reset resets every track; see TrackPlayer.Reset.
func (p *SongPlayer) Reset(hard, resetVoices bool) {
	for i := range p.tracks {
		p.tracks[i].Reset(hard, resetVoices)
	}
}

func (p *SongPlayer) Section(track int) int {
	if !validTrack(track) {
		return 0
	}
	return p.tracks[track].Section()
}

func (p *SongPlayer) SetNextSectionRequest(track, section int) {
	if validTrack(track) {
		p.tracks[track].SetNextSectionRequest(section)
	}
}

func (p *SongPlayer) NextSectionRequest(track int) int {
	if !validTrack(track) {
		return 0
	}
	return p.tracks[track].NextSectionRequest()
}

func (p *SongPlayer) SetNumVoices(track, n int) {
	if validTrack(track) {
		p.tracks[track].SetNumVoices(n)
	}
}

func (p *SongPlayer) NumVoices(track int) int {
	if !validTrack(track) {
		return 0
	}
	return p.tracks[track].NumVoices()
}

func (p *SongPlayer) SetCVInputMode(track int, m CVInputMode) {
	if validTrack(track) {
		p.tracks[track].SetCVInputMode(m)
	}
}

func (p *SongPlayer) SetRetriggerSamples(n int) {
	for i := range p.tracks {
		p.tracks[i].SetRetriggerSamples(n)
	}
}

func (p *SongPlayer) SetAssignMode(m AssignMode) {
	for i := range p.tracks {
		p.tracks[i].SetAssignMode(m)
	}
}

// EndOfCycle reports the end of cycle of track 0 and clears the end of cycle
// flags of the other tracks.
func (p *SongPlayer) EndOfCycle() bool {
	ret := p.tracks[0].EndOfCycle()
	for i := 1; i < len(p.tracks); i++ {
		p.tracks[i].EndOfCycle()
	}
	return ret
}

func validTrack(track int) bool {
	return track >= 0 && track < seq4.NumTracks
}
