package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/core"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// gpuMesh holds the OpenGL buffer objects for an uploaded mesh.
type gpuMesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
}

// gpuIndexBuffer is the element buffer behind a renderer.IndexBuffer.
type gpuIndexBuffer struct {
	EBO      uint32
	uploaded int
}

// ensureUploaded uploads vertex/index data if not already done.
func (rs *RenderSystem) ensureUploaded(mesh *scene.Mesh) *gpuMesh {
	if gpu, ok := rs.meshes[mesh]; ok {
		return gpu
	}
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil
	}

	stride := int32(unsafe.Sizeof(core.Vertex{}))
	gpu := &gpuMesh{IndexCount: int32(len(mesh.Indices))}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER,
		len(mesh.Vertices)*int(stride),
		gl.Ptr(mesh.Vertices),
		gl.STATIC_DRAW)

	var v core.Vertex
	posOff := int(unsafe.Offsetof(v.Position))
	normOff := int(unsafe.Offsetof(v.Normal))
	uvOff := int(unsafe.Offsetof(v.UV))
	colorOff := int(unsafe.Offsetof(v.Color))

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(posOff))

	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(normOff))

	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(uvOff))

	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 4, gl.FLOAT, false, stride, gl.PtrOffset(colorOff))

	gl.GenBuffers(1, &gpu.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER,
		len(mesh.Indices)*4,
		gl.Ptr(mesh.Indices),
		gl.STATIC_DRAW)

	gl.BindVertexArray(0)

	rs.meshes[mesh] = gpu
	mesh.GPUData = gpu
	return gpu
}

// ReleaseMesh frees GPU buffers for a mesh.
func (rs *RenderSystem) ReleaseMesh(mesh *scene.Mesh) {
	gpu, ok := rs.meshes[mesh]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &gpu.VAO)
	gl.DeleteBuffers(1, &gpu.VBO)
	gl.DeleteBuffers(1, &gpu.EBO)
	delete(rs.meshes, mesh)
	mesh.GPUData = nil
}

// newListVAO creates the VAO for homogeneous vertex lists. Only the
// position attribute is sourced from the buffer; the others keep their
// generic values.
func newListVAO() (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 4, gl.FLOAT, false, 16, gl.PtrOffset(0))
	gl.BindVertexArray(0)

	gl.VertexAttrib3f(1, 0, 0, 1)
	gl.VertexAttrib2f(2, 0, 0)
	gl.VertexAttrib4f(3, 1, 1, 1, 1)
	return vao, vbo
}

// syncIndexBuffer uploads the used region of ib when it changed.
func syncIndexBuffer(ib *renderer.IndexBuffer) *gpuIndexBuffer {
	gpu, _ := ib.Handle.(*gpuIndexBuffer)
	if gpu == nil {
		gpu = &gpuIndexBuffer{}
		gl.GenBuffers(1, &gpu.EBO)
		ib.Handle = gpu
		ib.Dirty = true
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
	if ib.Dirty && ib.Used() > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, ib.Used()*4, gl.Ptr(ib.Slice(0, ib.Used())), gl.STREAM_DRAW)
		gpu.uploaded = ib.Used()
		ib.Dirty = false
	}
	return gpu
}

// drawList draws a homogeneous vertex list, indexed when op has indices.
func (rs *RenderSystem) drawList(op renderer.RenderOperation) {
	if len(op.Vertices) == 0 {
		return
	}
	gl.BindVertexArray(rs.listVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, rs.listVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(op.Vertices)*16, gl.Ptr(op.Vertices), gl.STREAM_DRAW)

	if op.Indices == nil {
		gl.DrawArrays(gl.TRIANGLES, 0, int32(len(op.Vertices)))
	} else if op.IndexCount > 0 {
		gpu := syncIndexBuffer(op.Indices)
		if op.IndexStart+op.IndexCount <= gpu.uploaded {
			gl.DrawElements(gl.TRIANGLES, int32(op.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(op.IndexStart*4))
		}
	}
	gl.BindVertexArray(0)
}

func (rs *RenderSystem) drawMesh(mesh *scene.Mesh) {
	gpu := rs.ensureUploaded(mesh)
	if gpu == nil {
		return
	}
	gl.BindVertexArray(gpu.VAO)
	gl.DrawElements(gl.TRIANGLES, gpu.IndexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}
