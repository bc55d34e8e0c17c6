package io

import (
	"bufio"
	"fmt"
	stdio "io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/scene"
)

// OBJData holds the meshes and materials of a Wavefront file.
type OBJData struct {
	Name      string
	Meshes    []*scene.Mesh
	Materials map[string]*materials.Material
}

// objReader accumulates one OBJ file. Vertices are shared within a group,
// so closed models stay closed for shadow volume edge lists.
type objReader struct {
	dir string

	positions []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2

	name     string
	material string
	vertices []core.Vertex
	indices  []uint32
	seen     map[string]uint32

	data *OBJData
}

// LoadOBJ parses a Wavefront .obj file; each o/g group becomes a mesh.
func LoadOBJ(path string) (*OBJData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f, filepath.Base(path), filepath.Dir(path))
}

// ParseOBJ reads OBJ data from r. mtllib files are looked up in dir.
func ParseOBJ(r stdio.Reader, name, dir string) (*OBJData, error) {
	rd := &objReader{
		dir:  dir,
		name: "default",
		seen: make(map[string]uint32),
		data: &OBJData{Name: name, Materials: make(map[string]*materials.Material)},
	}
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		if err := rd.line(strings.Fields(sc.Text())); err != nil {
			return nil, fmt.Errorf("failed to parse OBJ %s:%d: %w", name, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read OBJ file: %w", err)
	}
	rd.flush()
	if len(rd.data.Meshes) == 0 {
		return nil, fmt.Errorf("no mesh data found in OBJ file %s", name)
	}
	return rd.data, nil
}

func (rd *objReader) line(parts []string) error {
	if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
		return nil
	}
	switch parts[0] {
	case "v":
		v, err := parseFloats(parts[1:], 3)
		if err != nil {
			return err
		}
		rd.positions = append(rd.positions, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
	case "vn":
		v, err := parseFloats(parts[1:], 3)
		if err != nil {
			return err
		}
		rd.normals = append(rd.normals, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
	case "vt":
		v, err := parseFloats(parts[1:], 2)
		if err != nil {
			return err
		}
		rd.uvs = append(rd.uvs, math.Vec2{X: v[0], Y: v[1]})
	case "f":
		if len(parts) < 4 {
			return fmt.Errorf("face with %d vertices", len(parts)-1)
		}
		face := make([]uint32, 0, len(parts)-1)
		for _, spec := range parts[1:] {
			idx, err := rd.vertex(spec)
			if err != nil {
				return err
			}
			face = append(face, idx)
		}
		for i := 2; i < len(face); i++ {
			rd.indices = append(rd.indices, face[0], face[i-1], face[i])
		}
	case "o", "g":
		rd.flush()
		rd.name = "unnamed"
		if len(parts) > 1 {
			rd.name = parts[1]
		}
	case "usemtl":
		if len(parts) > 1 {
			rd.material = parts[1]
		}
	case "mtllib":
		for _, lib := range parts[1:] {
			mtls, err := LoadMTL(filepath.Join(rd.dir, lib))
			if err != nil {
				core.Logger().Warn("io: material library skipped", "file", lib, "err", err)
				continue
			}
			for k, v := range mtls {
				rd.data.Materials[k] = v
			}
		}
	}
	return nil
}

// vertex returns the index of a "v/vt/vn" corner, adding it on first use.
func (rd *objReader) vertex(spec string) (uint32, error) {
	if idx, ok := rd.seen[spec]; ok {
		return idx, nil
	}
	v := core.Vertex{Color: core.ColorWhite}
	refs := strings.Split(spec, "/")

	i, err := objIndex(refs[0], len(rd.positions))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("bad position reference %q", spec)
	}
	v.Position = rd.positions[i]
	if len(refs) > 1 && refs[1] != "" {
		if i, err := objIndex(refs[1], len(rd.uvs)); err == nil && i >= 0 {
			v.UV = rd.uvs[i]
		}
	}
	if len(refs) > 2 && refs[2] != "" {
		if i, err := objIndex(refs[2], len(rd.normals)); err == nil && i >= 0 {
			v.Normal = rd.normals[i]
		}
	}

	idx := uint32(len(rd.vertices))
	rd.vertices = append(rd.vertices, v)
	rd.seen[spec] = idx
	return idx, nil
}

// objIndex resolves a 1-based or negative OBJ reference; -1 means out of range.
func objIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, err
	}
	if i < 0 {
		i = n + i + 1
	}
	if i < 1 || i > n {
		return -1, nil
	}
	return i - 1, nil
}

func (rd *objReader) flush() {
	if len(rd.indices) > 0 {
		m := scene.CreateMeshFromData(rd.name, rd.vertices, rd.indices)
		m.MaterialName = rd.material
		rd.data.Meshes = append(rd.data.Meshes, m)
	}
	rd.vertices = nil
	rd.indices = nil
	rd.seen = make(map[string]uint32)
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// LoadMTL parses a Wavefront .mtl file into single-pass materials.
func LoadMTL(path string) (map[string]*materials.Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := make(map[string]*materials.Material)
	var pass *materials.Pass

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		parts := strings.Fields(sc.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if parts[0] == "newmtl" && len(parts) > 1 {
			m := materials.NewMaterial(parts[1])
			result[parts[1]] = m
			pass = m.FirstPass()
			continue
		}
		if pass == nil {
			continue
		}
		switch parts[0] {
		case "Ka", "Kd", "Ks":
			v, err := parseFloats(parts[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			c := core.Color{R: v[0], G: v[1], B: v[2], A: 1}
			switch parts[0] {
			case "Ka":
				pass.Ambient = c
			case "Kd":
				pass.Diffuse = core.Color{R: c.R, G: c.G, B: c.B, A: pass.Diffuse.A}
			case "Ks":
				pass.Specular = c
			}
		case "Ns":
			v, err := parseFloats(parts[1:], 1)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			pass.Shininess = v[0]
		case "d", "Tr":
			v, err := parseFloats(parts[1:], 1)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			alpha := v[0]
			if parts[0] == "Tr" {
				alpha = 1 - alpha
			}
			pass.Diffuse.A = alpha
			if alpha < 1 {
				pass.SetSceneBlending(materials.BlendSourceAlpha, materials.BlendOneMinusSourceAlpha)
				pass.DepthWrite = false
			}
		case "map_Kd":
			if len(parts) > 1 {
				pass.AddTextureUnit(materials.NewTextureUnit(parts[len(parts)-1]))
			}
		}
	}
	return result, sc.Err()
}
